// Package service implements the client directory on top of storage and the live exposer sessions.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"hostexposer/internal/server/events"
	"hostexposer/internal/server/hub"
	"hostexposer/internal/server/storage"
	"hostexposer/internal/times"
	"hostexposer/internal/types"
	"hostexposer/internal/validator"

	"go.uber.org/zap"
)

// Exposer is a connected client able to report its adapter addresses
type Exposer interface {
	ID() string
	FetchAdapterAddresses(ctx context.Context) ([]types.AdapterAddress, error)
}

// Registry lists the connected clients
type Registry interface {
	Connected() []Exposer
	Count() int
}

// HubRegistry adapts a hub to Registry
type HubRegistry struct {
	Hub *hub.Hub
}

// Connected implements Registry
func (r HubRegistry) Connected() []Exposer {
	sessions := r.Hub.Sessions()
	out := make([]Exposer, len(sessions))
	for i, s := range sessions {
		out[i] = s
	}
	return out
}

// Count implements Registry
func (r HubRegistry) Count() int {
	return r.Hub.Count()
}

// Options configures a Service
type Options struct {
	FetchTimeout time.Duration
	Clock        *times.Clock
	Publisher    events.Publisher
}

// Service represents the server service
type Service struct {
	store        storage.Storage
	registry     Registry
	publisher    events.Publisher
	clock        *times.Clock
	fetchTimeout time.Duration
	validate     *validator.Validator
	logger       *zap.Logger
	startTime    time.Time
}

// New creates a service. The registry may be set later with SetRegistry.
func New(store storage.Storage, registry Registry, opts Options, logger *zap.Logger) *Service {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = times.NewClock(nil)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}

	return &Service{
		store:        store,
		registry:     registry,
		publisher:    opts.Publisher,
		clock:        opts.Clock,
		fetchTimeout: opts.FetchTimeout,
		validate:     validator.New(),
		logger:       logger,
		startTime:    time.Now(),
	}
}

// SetRegistry sets the source of connected clients
func (s *Service) SetRegistry(r Registry) {
	s.registry = r
}

// ListClients asks every connected client for its addresses and joins the
// answers with the stored entities. A client that fails to answer is listed
// with a single adapter named after the failure.
func (s *Service) ListClients(ctx context.Context) ([]types.ClientInformation, error) {
	exposers := s.connected()
	if len(exposers) == 0 {
		return []types.ClientInformation{}, nil
	}

	addresses := s.fetchAll(ctx, exposers)

	ids := make([]string, len(exposers))
	for i, e := range exposers {
		ids[i] = e.ID()
	}

	now := s.clock.NowString()
	records, err := s.store.GetClients(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}

	for _, id := range ids {
		if _, ok := records[id]; ok {
			continue
		}
		r, err := s.store.EnsureClient(ctx, id, now)
		if err != nil {
			return nil, fmt.Errorf("failed to save client %s: %w", id, err)
		}
		records[id] = r
	}

	if err := s.store.UpdateFetchTime(ctx, ids, now); err != nil {
		return nil, fmt.Errorf("failed to update fetch time: %w", err)
	}

	out := make([]types.ClientInformation, len(ids))
	for i, id := range ids {
		entity := records[id].Entity()
		entity.LastFetchTime = now
		out[i] = types.ClientInformation{
			Entity:           entity,
			AdapterAddresses: addresses[i],
		}
	}

	sortClients(out)
	return out, nil
}

func (s *Service) connected() []Exposer {
	if s.registry == nil {
		return nil
	}
	return s.registry.Connected()
}

func (s *Service) fetchAll(ctx context.Context, exposers []Exposer) [][]types.AdapterAddress {
	out := make([][]types.AdapterAddress, len(exposers))

	var wg sync.WaitGroup
	for i, e := range exposers {
		wg.Add(1)
		go func(i int, e Exposer) {
			defer wg.Done()

			fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
			defer cancel()

			addrs, err := e.FetchAdapterAddresses(fctx)
			if err != nil {
				s.logger.Error("Failed to get adapter addresses",
					zap.String("client_id", e.ID()),
					zap.Error(err))
				addrs = []types.AdapterAddress{{Name: err.Error()}}
			}
			if addrs == nil {
				addrs = []types.AdapterAddress{}
			}
			out[i] = addrs
		}(i, e)
	}
	wg.Wait()

	return out
}

// sortClients orders by create time, then id
func sortClients(clients []types.ClientInformation) {
	sort.SliceStable(clients, func(i, j int) bool {
		a, b := clients[i].Entity, clients[j].Entity
		if a.CreateTime != b.CreateTime {
			ta, errA := time.Parse(times.Layout, a.CreateTime)
			tb, errB := time.Parse(times.Layout, b.CreateTime)
			if errA == nil && errB == nil && !ta.Equal(tb) {
				return ta.Before(tb)
			}
			if errA != nil || errB != nil {
				return a.CreateTime < b.CreateTime
			}
		}
		return a.ID < b.ID
	})
}

// RenameClient sets a client's display name
func (s *Service) RenameClient(ctx context.Context, id string, req types.RenameRequest) error {
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		return fmt.Errorf("%w: client id must be a UUID", types.ErrInvalidRequest)
	}
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", types.ErrInvalidRequest, err)
	}

	if err := s.store.RenameClient(ctx, id, req.NewName); err != nil {
		if errors.Is(err, types.ErrClientNotFound) {
			return err
		}
		return fmt.Errorf("failed to rename client: %w", err)
	}

	s.logger.Info("Client renamed",
		zap.String("client_id", id),
		zap.String("name", req.NewName))
	s.publish(ctx, events.Event{Type: events.ClientRenamed, ClientID: id, Name: req.NewName})
	return nil
}

// ClientConnected stores a newly established client
func (s *Service) ClientConnected(ctx context.Context, id string) error {
	r, err := s.store.EnsureClient(ctx, id, s.clock.NowString())
	if err != nil {
		return fmt.Errorf("failed to save new client information: %w", err)
	}
	s.publish(ctx, events.Event{Type: events.ClientConnected, ClientID: id, Name: r.Name})
	return nil
}

// ClientDisconnected publishes the disconnect
func (s *Service) ClientDisconnected(ctx context.Context, id string) {
	s.publish(ctx, events.Event{Type: events.ClientDisconnected, ClientID: id})
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	e.Timestamp = s.clock.Now()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("type", string(e.Type)),
			zap.String("client_id", e.ClientID),
			zap.Error(err))
	}
}

// Stop releases the publisher and storage
func (s *Service) Stop() error {
	var errs []error
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
