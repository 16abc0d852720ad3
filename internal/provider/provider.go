// Package provider wraps the Hetzner Cloud API behind a narrow interface.
// The core only ever needs to know whether a call succeeded; the thin DTOs
// here exist for the response payloads, not for modeling provider state.
package provider

import (
	"context"
	"errors"
	"time"
)

var ErrServerNotFound = errors.New("server not found")

type Server struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	PublicIP   string    `json:"public_ip,omitempty"`
	ServerType string    `json:"server_type,omitempty"`
	Image      string    `json:"image,omitempty"`
	Location   string    `json:"location,omitempty"`
	Created    time.Time `json:"created"`
}

// CreatedServer carries the one-time root password returned on creation.
type CreatedServer struct {
	Server       Server `json:"server"`
	RootPassword string `json:"root_password,omitempty"`
}

type ServerType struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Cores       int     `json:"cores"`
	MemoryGB    float32 `json:"memory_gb"`
	DiskGB      int     `json:"disk_gb"`
	Description string  `json:"description,omitempty"`
}

type Image struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	Created     time.Time `json:"created"`
}

type CreateServerOpts struct {
	Name       string
	ServerType string
	Image      string
	Location   string
	SSHKeys    []string
}

// Client is the provider capability set the services depend on.
type Client interface {
	// Ping verifies the credential by issuing a cheap read call.
	Ping(ctx context.Context) error

	ListServers(ctx context.Context) ([]Server, error)
	GetServer(ctx context.Context, id int64) (*Server, error)
	CreateServer(ctx context.Context, opts CreateServerOpts) (*CreatedServer, error)
	DeleteServer(ctx context.Context, id int64) error
	PowerOn(ctx context.Context, id int64) error
	PowerOff(ctx context.Context, id int64) error
	Reboot(ctx context.Context, id int64) error

	ListServerTypes(ctx context.Context) ([]ServerType, error)
	ListImages(ctx context.Context) ([]Image, error)
}

// Factory builds a Client for a project's API key. Injected so tests can
// substitute a fake.
type Factory func(apiKey string) Client
