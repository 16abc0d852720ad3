package provider

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// HCloudClient implements Client on the official Hetzner Cloud SDK.
type HCloudClient struct {
	client *hcloud.Client
}

// NewHCloudClient builds a client for one project's API key.
func NewHCloudClient(apiKey string) Client {
	return &HCloudClient{
		client: hcloud.NewClient(
			hcloud.WithToken(apiKey),
			hcloud.WithApplication("clouddock", ""),
		),
	}
}

func (c *HCloudClient) Ping(ctx context.Context) error {
	// Listing server types is the cheapest authenticated read.
	if _, err := c.client.ServerType.All(ctx); err != nil {
		return fmt.Errorf("provider connection failed: %w", err)
	}
	return nil
}

func (c *HCloudClient) ListServers(ctx context.Context) ([]Server, error) {
	servers, err := c.client.Server.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	out := make([]Server, 0, len(servers))
	for _, s := range servers {
		out = append(out, fromHCloudServer(s))
	}
	return out, nil
}

func (c *HCloudClient) GetServer(ctx context.Context, id int64) (*Server, error) {
	server, _, err := c.client.Server.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	if server == nil {
		return nil, ErrServerNotFound
	}

	s := fromHCloudServer(server)
	return &s, nil
}

func (c *HCloudClient) CreateServer(ctx context.Context, opts CreateServerOpts) (*CreatedServer, error) {
	createOpts := hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: &hcloud.ServerType{Name: opts.ServerType},
		Image:      &hcloud.Image{Name: opts.Image},
	}
	if opts.Location != "" {
		createOpts.Location = &hcloud.Location{Name: opts.Location}
	}
	for _, key := range opts.SSHKeys {
		createOpts.SSHKeys = append(createOpts.SSHKeys, &hcloud.SSHKey{Name: key})
	}

	result, _, err := c.client.Server.Create(ctx, createOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &CreatedServer{
		Server:       fromHCloudServer(result.Server),
		RootPassword: result.RootPassword,
	}, nil
}

func (c *HCloudClient) DeleteServer(ctx context.Context, id int64) error {
	_, _, err := c.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: id})
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}
	return nil
}

func (c *HCloudClient) PowerOn(ctx context.Context, id int64) error {
	_, _, err := c.client.Server.Poweron(ctx, &hcloud.Server{ID: id})
	if err != nil {
		return fmt.Errorf("failed to power on server: %w", err)
	}
	return nil
}

func (c *HCloudClient) PowerOff(ctx context.Context, id int64) error {
	_, _, err := c.client.Server.Poweroff(ctx, &hcloud.Server{ID: id})
	if err != nil {
		return fmt.Errorf("failed to power off server: %w", err)
	}
	return nil
}

func (c *HCloudClient) Reboot(ctx context.Context, id int64) error {
	_, _, err := c.client.Server.Reboot(ctx, &hcloud.Server{ID: id})
	if err != nil {
		return fmt.Errorf("failed to reboot server: %w", err)
	}
	return nil
}

func (c *HCloudClient) ListServerTypes(ctx context.Context) ([]ServerType, error) {
	types, err := c.client.ServerType.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list server types: %w", err)
	}

	out := make([]ServerType, 0, len(types))
	for _, t := range types {
		out = append(out, ServerType{
			ID:          t.ID,
			Name:        t.Name,
			Cores:       t.Cores,
			MemoryGB:    t.Memory,
			DiskGB:      t.Disk,
			Description: t.Description,
		})
	}
	return out, nil
}

func (c *HCloudClient) ListImages(ctx context.Context) ([]Image, error) {
	images, err := c.client.Image.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	out := make([]Image, 0, len(images))
	for _, img := range images {
		out = append(out, Image{
			ID:          img.ID,
			Name:        img.Name,
			Description: img.Description,
			Type:        string(img.Type),
			Created:     img.Created,
		})
	}
	return out, nil
}

func fromHCloudServer(s *hcloud.Server) Server {
	out := Server{
		ID:      s.ID,
		Name:    s.Name,
		Status:  string(s.Status),
		Created: s.Created,
	}
	if s.PublicNet.IPv4.IP != nil {
		out.PublicIP = s.PublicNet.IPv4.IP.String()
	}
	if s.ServerType != nil {
		out.ServerType = s.ServerType.Name
	}
	if s.Image != nil {
		out.Image = s.Image.Name
	}
	if s.Datacenter != nil && s.Datacenter.Location != nil {
		out.Location = s.Datacenter.Location.Name
	}
	return out
}
