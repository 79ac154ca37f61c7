package parser

import (
	"fmt"

	"github.com/ShipCreekGroup/email-parser/internal/config"
	"github.com/ShipCreekGroup/email-parser/internal/port"
)

// ProviderFactory is a function that creates a ChunkStreamer from a provider config.
type ProviderFactory func(cfg *config.ParserProviderConfig) (port.ChunkStreamer, error)

// registry of streaming provider factories, populated explicitly via
// RegisterProvider at startup.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a streaming provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewStreamer creates a ChunkStreamer from a provider config using the
// registered factory.
func NewStreamer(cfg *config.ParserProviderConfig) (port.ChunkStreamer, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown parser provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
