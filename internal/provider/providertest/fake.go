// Package providertest provides an in-memory provider.Client for tests.
package providertest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clouddock-systems/clouddock/internal/provider"
)

// ErrBadCredential is what the fake returns when pinged with a key other
// than the ones registered via NewFactory.
var ErrBadCredential = errors.New("unauthorized")

// Fake is an in-memory provider.Client. Zero value is usable; all fields are
// optional overrides.
type Fake struct {
	mu      sync.Mutex
	nextID  int64
	servers map[int64]provider.Server

	// PingErr, when set, fails every Ping call.
	PingErr error
	// FailAll, when set, fails every non-Ping call.
	FailAll error

	Types  []provider.ServerType
	Images []provider.Image
}

func NewFake() *Fake {
	return &Fake{
		nextID:  1,
		servers: make(map[int64]provider.Server),
		Types: []provider.ServerType{
			{ID: 1, Name: "cx22", Cores: 2, MemoryGB: 4, DiskGB: 40},
		},
		Images: []provider.Image{
			{ID: 1, Name: "ubuntu-24.04", Type: "system", Created: time.Now().UTC()},
		},
	}
}

// NewFactory returns a provider.Factory that hands out fake for the given
// key and a credential-rejecting client for anything else.
func NewFactory(validKey string, fake *Fake) provider.Factory {
	return func(apiKey string) provider.Client {
		if apiKey == validKey {
			return fake
		}
		return &Fake{PingErr: ErrBadCredential, servers: make(map[int64]provider.Server)}
	}
}

func (f *Fake) Ping(ctx context.Context) error {
	return f.PingErr
}

func (f *Fake) ListServers(ctx context.Context) ([]provider.Server, error) {
	if f.FailAll != nil {
		return nil, f.FailAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	servers := make([]provider.Server, 0, len(f.servers))
	for _, s := range f.servers {
		servers = append(servers, s)
	}
	return servers, nil
}

func (f *Fake) GetServer(ctx context.Context, id int64) (*provider.Server, error) {
	if f.FailAll != nil {
		return nil, f.FailAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.servers[id]
	if !ok {
		return nil, provider.ErrServerNotFound
	}
	return &s, nil
}

func (f *Fake) CreateServer(ctx context.Context, opts provider.CreateServerOpts) (*provider.CreatedServer, error) {
	if f.FailAll != nil {
		return nil, f.FailAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s := provider.Server{
		ID:         f.nextID,
		Name:       opts.Name,
		Status:     "running",
		ServerType: opts.ServerType,
		Image:      opts.Image,
		Location:   opts.Location,
		Created:    time.Now().UTC(),
	}
	f.nextID++
	f.servers[s.ID] = s

	return &provider.CreatedServer{Server: s, RootPassword: "generated-root-password"}, nil
}

func (f *Fake) DeleteServer(ctx context.Context, id int64) error {
	if f.FailAll != nil {
		return f.FailAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.servers[id]; !ok {
		return provider.ErrServerNotFound
	}
	delete(f.servers, id)
	return nil
}

func (f *Fake) setStatus(id int64, status string) error {
	if f.FailAll != nil {
		return f.FailAll
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.servers[id]
	if !ok {
		return provider.ErrServerNotFound
	}
	s.Status = status
	f.servers[id] = s
	return nil
}

func (f *Fake) PowerOn(ctx context.Context, id int64) error  { return f.setStatus(id, "running") }
func (f *Fake) PowerOff(ctx context.Context, id int64) error { return f.setStatus(id, "off") }
func (f *Fake) Reboot(ctx context.Context, id int64) error   { return f.setStatus(id, "running") }

func (f *Fake) ListServerTypes(ctx context.Context) ([]provider.ServerType, error) {
	if f.FailAll != nil {
		return nil, f.FailAll
	}
	return f.Types, nil
}

func (f *Fake) ListImages(ctx context.Context) ([]provider.Image, error) {
	if f.FailAll != nil {
		return nil, f.FailAll
	}
	return f.Images, nil
}
