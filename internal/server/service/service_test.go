package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hostexposer/internal/server/events"
	"hostexposer/internal/server/storage"
	"hostexposer/internal/times"
	"hostexposer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	idA = "11111111-1111-4111-8111-111111111111"
	idB = "22222222-2222-4222-8222-222222222222"
)

type fakeExposer struct {
	id    string
	addrs []types.AdapterAddress
	err   error
	delay time.Duration
}

func (f *fakeExposer) ID() string { return f.id }

func (f *fakeExposer) FetchAdapterAddresses(ctx context.Context) ([]types.AdapterAddress, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.addrs, f.err
}

type fakeRegistry struct {
	exposers []Exposer
}

func (r *fakeRegistry) Connected() []Exposer { return r.exposers }
func (r *fakeRegistry) Count() int           { return len(r.exposers) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	svc       *Service
	store     storage.Storage
	registry  *fakeRegistry
	publisher *recordingPublisher
	clock     *times.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)

	store, err := storage.New(&storage.Config{
		Driver:      storage.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "data.sqlite"),
		AutoMigrate: true,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock, err := times.NewClockFromOffset("+00:00")
	require.NoError(t, err)

	f := &fixture{
		store:     store,
		registry:  &fakeRegistry{},
		publisher: &recordingPublisher{},
		clock:     clock,
	}
	f.svc = New(store, f.registry, Options{
		FetchTimeout: 100 * time.Millisecond,
		Clock:        clock,
		Publisher:    f.publisher,
	}, log)
	return f
}

func TestListClientsEmpty(t *testing.T) {
	f := newFixture(t)

	clients, err := f.svc.ListClients(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, clients)
	assert.Empty(t, clients)
}

func TestListClients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.EnsureClient(ctx, idB, "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, f.store.RenameClient(ctx, idB, "Office NAS"))

	f.registry.exposers = []Exposer{
		&fakeExposer{id: idA, addrs: []types.AdapterAddress{{Name: "eth0", V4: "10.0.0.2"}}},
		&fakeExposer{id: idB, err: errors.New("boom")},
	}

	clients, err := f.svc.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 2)

	// idB was stored first, idA is created by this listing
	assert.Equal(t, idB, clients[0].Entity.ID)
	assert.Equal(t, "Office NAS", clients[0].Entity.Name)
	assert.Equal(t, "2024-01-01T00:00:00Z", clients[0].Entity.CreateTime)
	assert.Equal(t, []types.AdapterAddress{{Name: "boom"}}, clients[0].AdapterAddresses)

	assert.Equal(t, idA, clients[1].Entity.ID)
	assert.Equal(t, idA, clients[1].Entity.Name)
	assert.Equal(t, []types.AdapterAddress{{Name: "eth0", V4: "10.0.0.2"}}, clients[1].AdapterAddresses)

	records, err := f.store.GetClients(ctx, []string{idA, idB})
	require.NoError(t, err)
	assert.Equal(t, clients[0].Entity.LastFetchTime, records[idB].LastFetchTime)
	assert.Equal(t, clients[1].Entity.LastFetchTime, records[idA].LastFetchTime)
	assert.NotEqual(t, "2024-01-01T00:00:00Z", records[idB].LastFetchTime)
}

func TestListClientsSlowClientTimesOut(t *testing.T) {
	f := newFixture(t)

	f.registry.exposers = []Exposer{
		&fakeExposer{id: idA, delay: time.Second},
		&fakeExposer{id: idB, addrs: nil},
	}

	start := time.Now()
	clients, err := f.svc.ListClients(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)

	byID := map[string]types.ClientInformation{}
	for _, c := range clients {
		byID[c.Entity.ID] = c
	}
	require.Len(t, byID[idA].AdapterAddresses, 1)
	assert.Contains(t, byID[idA].AdapterAddresses[0].Name, "deadline exceeded")
	assert.NotNil(t, byID[idB].AdapterAddresses)
	assert.Empty(t, byID[idB].AdapterAddresses)
}

func TestRenameClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.EnsureClient(ctx, idA, f.clock.NowString())
	require.NoError(t, err)

	require.NoError(t, f.svc.RenameClient(ctx, idA, types.RenameRequest{NewName: "Office NAS"}))

	records, err := f.store.GetClients(ctx, []string{idA})
	require.NoError(t, err)
	assert.Equal(t, "Office NAS", records[idA].Name)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, events.ClientRenamed, f.publisher.events[0].Type)
	assert.Equal(t, "Office NAS", f.publisher.events[0].Name)

	err = f.svc.RenameClient(ctx, idB, types.RenameRequest{NewName: "x"})
	assert.ErrorIs(t, err, types.ErrClientNotFound)

	err = f.svc.RenameClient(ctx, "c1", types.RenameRequest{NewName: "x"})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)

	err = f.svc.RenameClient(ctx, idA, types.RenameRequest{NewName: ""})
	assert.ErrorIs(t, err, types.ErrInvalidRequest)
}

func TestListenerCallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.ClientConnected(ctx, idA))
	require.NoError(t, f.svc.ClientConnected(ctx, idA))
	f.svc.ClientDisconnected(ctx, idA)

	records, err := f.store.GetClients(ctx, []string{idA})
	require.NoError(t, err)
	assert.Equal(t, idA, records[idA].Name)

	require.Len(t, f.publisher.events, 3)
	assert.Equal(t, events.ClientConnected, f.publisher.events[0].Type)
	assert.Equal(t, events.ClientDisconnected, f.publisher.events[2].Type)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	assert.NoError(t, f.svc.ClientConnected(context.Background(), idA))
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	f.registry.exposers = []Exposer{&fakeExposer{id: idA}}

	status := f.svc.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
	require.Len(t, status.Details, 2)
	assert.Equal(t, "storage", status.Details[0].Name)
	assert.Equal(t, "Connected clients: 1", status.Details[1].Message)

	require.NoError(t, f.store.Close())
	status = f.svc.HealthCheck(context.Background())
	assert.False(t, status.Healthy)
}

func TestSortClients(t *testing.T) {
	clients := []types.ClientInformation{
		{Entity: types.Entity{ID: "b", CreateTime: "2024-01-02T00:00:00Z"}},
		{Entity: types.Entity{ID: "c", CreateTime: "2024-01-01T00:00:00Z"}},
		{Entity: types.Entity{ID: "a", CreateTime: "2024-01-02T00:00:00Z"}},
		{Entity: types.Entity{ID: "d", CreateTime: "2024-01-01T07:00:00+08:00"}},
	}
	sortClients(clients)

	ids := make([]string, len(clients))
	for i, c := range clients {
		ids[i] = c.Entity.ID
	}
	assert.Equal(t, []string{"d", "c", "a", "b"}, ids)
}
