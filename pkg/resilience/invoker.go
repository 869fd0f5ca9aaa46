package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/WessleyAI/overflow-mcp/pkg/metrics"
)

// ErrOverload is the sentinel an action's error must match (via errors.Is)
// for the invoker to treat it as upstream overload.
var ErrOverload = errors.New("upstream overloaded")

// InvokerOpts configures the retry policy.
type InvokerOpts struct {
	// Retries is the overload retry budget per call. Gate denials do not
	// consume it.
	Retries int
	// Cooldown is the fixed wait after a gate denial or an overload failure.
	Cooldown time.Duration
	// Overloaded classifies errors. Defaults to errors.Is(err, ErrOverload).
	Overloaded func(error) bool
}

// DefaultInvokerOpts retries overload three times with a 2s cooldown.
var DefaultInvokerOpts = InvokerOpts{
	Retries:  3,
	Cooldown: 2 * time.Second,
}

// Invoker runs outbound calls through a Gate and retries upstream overload.
type Invoker struct {
	gate   Gate
	opts   InvokerOpts
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error

	calls     *metrics.Counter
	denials   *metrics.Counter
	overloads *metrics.Counter
}

// NewInvoker creates an Invoker owning the given gate.
func NewInvoker(gate Gate, opts InvokerOpts, logger *slog.Logger) *Invoker {
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultInvokerOpts.Cooldown
	}
	if opts.Overloaded == nil {
		opts.Overloaded = func(err error) bool { return errors.Is(err, ErrOverload) }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		gate:   gate,
		opts:   opts,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Instrument registers the invoker's counters on reg.
func (inv *Invoker) Instrument(reg *metrics.Registry) {
	inv.calls = reg.Counter("overflow_upstream_calls_total", "Outbound calls admitted by the gate.")
	inv.denials = reg.Counter("overflow_gate_denials_total", "Outbound calls delayed by the local sliding window.")
	inv.overloads = reg.Counter("overflow_overload_retries_total", "Retries after upstream 429 responses.")
}

// Do runs action once admitted. A gate denial waits Cooldown and tries again
// without touching the retry budget. An overload failure waits Cooldown and
// retries while budget remains. Every other outcome is returned unchanged.
func (inv *Invoker) Do(ctx context.Context, action func(context.Context) error) error {
	retries := inv.opts.Retries
	waits := 0
	for {
		if !inv.gate.TryAcquire() {
			waits++
			inc(inv.denials)
			inv.logger.Warn("rate limit exceeded, waiting before retry",
				"waits", waits, "cooldown", inv.opts.Cooldown)
			if err := inv.sleep(ctx, inv.opts.Cooldown); err != nil {
				return err
			}
			continue
		}

		inc(inv.calls)
		err := action(ctx)
		if err == nil || !inv.opts.Overloaded(err) || retries == 0 {
			return err
		}
		retries--
		inc(inv.overloads)
		inv.logger.Warn("upstream overload (429), retrying",
			"retries_left", retries, "cooldown", inv.opts.Cooldown)
		if err := inv.sleep(ctx, inv.opts.Cooldown); err != nil {
			return err
		}
	}
}

// Call is Do for actions that produce a value.
func Call[T any](ctx context.Context, inv *Invoker, f func(context.Context) (T, error)) (T, error) {
	var out T
	err := inv.Do(ctx, func(ctx context.Context) error {
		v, err := f(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func inc(c *metrics.Counter) {
	if c != nil {
		c.Inc()
	}
}
