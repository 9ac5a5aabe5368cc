package node

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/tablenode/internal/config"
	"github.com/dyluth/tablenode/internal/hardware"
	"github.com/dyluth/tablenode/internal/link"
)

// NewLink builds the transport selected by cfg.Link.Transport. The link is
// not connected; the engine's supervisor connects it.
func NewLink(cfg *config.NodeConfig) (link.Link, error) {
	switch cfg.Link.Transport {
	case "mqtt":
		return link.NewMQTT(link.MQTTConfig{
			Broker:         cfg.Link.Broker,
			ClientID:       cfg.Node.ClientID,
			QoS:            byte(cfg.Link.QoS),
			ConnectTimeout: cfg.Link.ConnectTimeout,
			InboxSize:      cfg.Link.InboxSize,
		}), nil

	case "redis":
		opts, err := redis.ParseURL(cfg.Link.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL %q: %w", cfg.Link.RedisURL, err)
		}
		return link.NewRedis(opts, link.RedisConfig{
			Namespace:      cfg.Link.Namespace,
			ConnectTimeout: cfg.Link.ConnectTimeout,
			InboxSize:      cfg.Link.InboxSize,
		}), nil

	default:
		return nil, fmt.Errorf("unknown transport: %s", cfg.Link.Transport)
	}
}

// NewDevices opens the peripheral backend selected by cfg.Hardware.Backend.
func NewDevices(cfg *config.NodeConfig) (*hardware.Devices, error) {
	switch cfg.Hardware.Backend {
	case "sim":
		return hardware.NewSimDevices(cfg.Display.Width, cfg.Hardware.Echo), nil
	case "gpio":
		devices, err := hardware.NewGPIODevices(hardware.GPIOConfig{
			Chip:       cfg.Hardware.Chip,
			LEDLine:    cfg.Hardware.LEDLine,
			ButtonLine: cfg.Hardware.ButtonLine,
			BuzzerLine: cfg.Hardware.BuzzerLine,
			Columns:    cfg.Display.Width,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open gpio backend: %w", err)
		}
		return devices, nil
	default:
		return nil, fmt.Errorf("unknown hardware backend: %s", cfg.Hardware.Backend)
	}
}
