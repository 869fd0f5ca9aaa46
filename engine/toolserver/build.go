package toolserver

import (
	"log/slog"

	"github.com/WessleyAI/overflow-mcp/engine/search"
	"github.com/WessleyAI/overflow-mcp/engine/stackexchange"
	"github.com/WessleyAI/overflow-mcp/engine/tools"
	"github.com/WessleyAI/overflow-mcp/pkg/config"
	"github.com/WessleyAI/overflow-mcp/pkg/metrics"
	"github.com/WessleyAI/overflow-mcp/pkg/resilience"
)

// Build wires a dispatcher from cfg: one admission window owned by one
// invoker, the API client, and the search service. reg may be nil.
func Build(cfg config.Config, logger *slog.Logger, reg *metrics.Registry) *tools.Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	window := resilience.NewWindow(resilience.WindowOpts{
		Max:      cfg.RateLimit.Max,
		Duration: cfg.RateLimit.Window,
	})
	inv := resilience.NewInvoker(window, resilience.InvokerOpts{
		Retries:  cfg.RateLimit.MaxRetries,
		Cooldown: cfg.RateLimit.Cooldown,
	}, logger.With("component", "invoker"))

	client := stackexchange.NewClient(stackexchange.Config{
		BaseURL:     cfg.StackExchange.BaseURL,
		Site:        cfg.StackExchange.Site,
		Key:         cfg.StackExchange.APIKey,
		AccessToken: cfg.StackExchange.AccessToken,
		Timeout:     cfg.StackExchange.Timeout,
	}, inv)

	svc := search.New(client, search.Options{Workers: cfg.Search.Workers}, logger.With("component", "search"))
	d := tools.New(svc, logger.With("component", "tools"))

	if reg != nil {
		inv.Instrument(reg)
		d.Instrument(reg)
		reg.Gauge("overflow_window_max", "Admissions allowed per sliding window.").Set(int64(cfg.RateLimit.Max))
	}
	return d
}
