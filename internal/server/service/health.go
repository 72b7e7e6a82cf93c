package service

import (
	"context"
	"fmt"
	"time"

	"hostexposer/internal/types"
	"hostexposer/internal/version"
)

// HealthCheck reports storage reachability and the live session count
func (s *Service) HealthCheck(ctx context.Context) *types.HealthStatus {
	now := time.Now()
	status := &types.HealthStatus{
		Healthy:   true,
		Timestamp: now,
		Version:   version.GetInfo().Version,
		StartTime: s.startTime,
		Uptime:    now.Sub(s.startTime).Round(time.Second).String(),
	}

	if err := s.store.Ping(ctx); err != nil {
		status.Healthy = false
		status.Details = append(status.Details, types.ComponentStatus{
			Name:      "storage",
			Status:    "unhealthy",
			Error:     err.Error(),
			LastCheck: now,
		})
	} else {
		stats := s.store.Stats()
		status.Details = append(status.Details, types.ComponentStatus{
			Name:      "storage",
			Status:    "healthy",
			Message:   fmt.Sprintf("Queries: %d, errors: %d", stats.QueryCount, stats.QueryErrors),
			LastCheck: now,
		})
	}

	connected := 0
	if s.registry != nil {
		connected = s.registry.Count()
	}
	status.Details = append(status.Details, types.ComponentStatus{
		Name:      "exposer",
		Status:    "healthy",
		Message:   fmt.Sprintf("Connected clients: %d", connected),
		LastCheck: now,
	})

	return status
}
