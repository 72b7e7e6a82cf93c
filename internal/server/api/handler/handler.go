package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hostexposer/internal/server/api/response"
	"hostexposer/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClientService is what the client directory endpoints need from the service layer
type ClientService interface {
	ListClients(ctx context.Context) ([]types.ClientInformation, error)
	RenameClient(ctx context.Context, id string, req types.RenameRequest) error
	HealthCheck(ctx context.Context) *types.HealthStatus
}

// API represents the client directory API handlers
type API struct {
	service ClientService
	logger  *zap.Logger
	timeout time.Duration
}

// NewAPI creates new API handlers
func NewAPI(svc ClientService, logger *zap.Logger) *API {
	return &API{
		service: svc,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// RegisterClientRoutes registers the directory routes on an authorized group
func (api *API) RegisterClientRoutes(r *gin.RouterGroup) {
	r.GET("", api.listClients)
	r.GET("/auth", api.checkAuth)
	r.PUT("/:id", api.renameClient)
}

// listClients returns the directory as a bare JSON array
func (api *API) listClients(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), api.timeout)
	defer cancel()

	clients, err := api.service.ListClients(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			resp.Error(http.StatusGatewayTimeout, errors.New("request timeout"))
			return
		}
		api.logger.Error("Failed to list clients", zap.Error(err))
		resp.InternalError(err)
		return
	}

	resp.Raw(http.StatusOK, clients)
}

// checkAuth is reached only when the auth middleware accepted the credential
func (api *API) checkAuth(c *gin.Context) {
	response.New(c, api.logger).Empty(http.StatusOK)
}

func (api *API) renameClient(c *gin.Context) {
	resp := response.New(c, api.logger)
	id := c.Param("id")

	var req types.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), api.timeout)
	defer cancel()

	if err := api.service.RenameClient(ctx, id, req); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, types.ErrInvalidRequest):
			resp.BadRequest(err)
		case errors.Is(err, types.ErrClientNotFound):
			resp.NotFound(err)
		default:
			api.logger.Error("Failed to rename client",
				zap.String("client_id", id),
				zap.Error(err))
			resp.InternalError(err)
		}
		return
	}

	resp.Empty(http.StatusOK)
}

// Health reports the server health in the standard envelope
func (api *API) Health(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := api.service.HealthCheck(ctx)
	if !status.Healthy {
		c.JSON(http.StatusServiceUnavailable, response.Response{
			Code:      http.StatusServiceUnavailable,
			Message:   "unhealthy",
			Data:      status,
			RequestID: c.GetString("request_id"),
			Timestamp: time.Now(),
		})
		return
	}

	resp.Success(status)
}
