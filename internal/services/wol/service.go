// Package wol provides Wake-on-LAN operations.
package wol

import (
	"context"
	"fmt"
	"net"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
)

// Service defines the interface for Wake-on-LAN operations.
type Service interface {
	Wake(ctx context.Context, host models.ManagedHost, broadcastIP string) (*models.WOLResult, error)
}

// Client wraps the wol library for mocking.
type Client interface {
	Wake(broadcastIP string, mac net.HardwareAddr) error
}

// DefaultClient is the default implementation using mdlayher/wol.
type DefaultClient struct{}

// Wake sends a magic packet to the specified MAC address.
func (c *DefaultClient) Wake(broadcastIP string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create WOL client: %w", err)
	}
	defer func() { _ = client.Close() }()

	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return fmt.Errorf("invalid broadcast IP: %s", broadcastIP)
	}

	if err := client.Wake(ip.String()+":9", mac); err != nil {
		return fmt.Errorf("failed to send WOL packet: %w", err)
	}

	return nil
}

// Impl implements the WOL Service interface.
type Impl struct {
	wolClient Client
	logger    zerolog.Logger
}

// New creates a new WOL service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{wolClient: &DefaultClient{}, logger: logger}
}

// NewWithClient creates a new WOL service with a custom client (for testing).
func NewWithClient(logger zerolog.Logger, wolClient Client) *Impl {
	return &Impl{wolClient: wolClient, logger: logger}
}

// Wake sends a magic packet to the host. The host's broadcast override
// takes precedence over broadcastIP. Failures are carried in the result
// so one bad host never aborts a wake sequence.
func (s *Impl) Wake(ctx context.Context, host models.ManagedHost, broadcastIP string) (*models.WOLResult, error) {
	result := &models.WOLResult{}

	mac, err := net.ParseMAC(host.MAC)
	if err != nil {
		result.Error = fmt.Errorf("invalid MAC address %q: %w", host.MAC, err)
		return result, nil
	}

	if host.BroadcastIP != "" {
		broadcastIP = host.BroadcastIP
	}

	s.logger.Info().
		Str("host", host.Name).
		Str("mac", host.MAC).
		Str("broadcast", broadcastIP).
		Msg("sending WOL packet")

	if err := s.wolClient.Wake(broadcastIP, mac); err != nil {
		result.Error = err
		return result, nil //nolint:nilerr // error is stored in result struct by design
	}

	result.PacketSent = true
	result.BroadcastIP = broadcastIP
	return result, nil
}
