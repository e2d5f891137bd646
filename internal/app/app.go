package app

import (
	"github.com/rs/zerolog"

	"github.com/xsigoking/chatgpt-free-api/internal/config"
	"github.com/xsigoking/chatgpt-free-api/internal/metrics"
	"github.com/xsigoking/chatgpt-free-api/internal/server"
)

// NewServer wires the gateway from configuration: shared outbound client,
// metrics registry and the per-process proof-of-work seed.
func NewServer(logger zerolog.Logger, cfg *config.Config, m *metrics.Metrics) *server.Server {
	return server.New(logger, server.Options{
		Client:        server.NewHTTPClient(cfg.ProxyURL),
		Metrics:       m,
		Authorization: cfg.Authorization,
		ProofSeed:     server.NewProofSeed(),
	})
}
