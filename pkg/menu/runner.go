package menu

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mchmarny/traymenu/pkg/event"
	"github.com/mchmarny/traymenu/pkg/metric"
	"github.com/mchmarny/traymenu/pkg/server"
	"github.com/mchmarny/traymenu/pkg/ui"
)

// busMetrics counts emissions and contained handler failures per channel.
type busMetrics struct {
	emitted metric.IncrementalCounter
	failed  metric.IncrementalCounter
}

func newBusMetrics(reg prometheus.Registerer) (*busMetrics, error) {
	emitted, err := metric.NewCounter(reg, "events_emitted_total",
		"Number of click events emitted per menu item channel.", "channel")
	if err != nil {
		return nil, fmt.Errorf("failed to register emitted counter: %w", err)
	}

	failed, err := metric.NewCounter(reg, "handler_failures_total",
		"Number of click listeners that failed per menu item channel.", "channel")
	if err != nil {
		return nil, fmt.Errorf("failed to register failure counter: %w", err)
	}

	return &busMetrics{emitted: emitted, failed: failed}, nil
}

func (b *busMetrics) Emitted(ch event.Channel) {
	b.emitted.Increment(ch.Name())
}

func (b *busMetrics) Failed(ch event.Channel, _ error) {
	b.failed.Increment(ch.Name())
}

// Instrument installs o on every distinct bus used by the items in the tree
// at the time of the call. Items added later on a bus the tree did not use
// yet are not observed. It returns the number of buses and a func that
// removes o from all of them.
func (m *Menu) Instrument(o event.Observer) (int, func()) {
	seen := map[*event.Bus[*Item]]bool{}
	var removers []func()
	m.Walk(func(it *Item) {
		if it.bus == nil || seen[it.bus] {
			return
		}
		seen[it.bus] = true
		removers = append(removers, it.bus.Observe(o))
	})

	return len(seen), func() {
		for _, remove := range removers {
			remove()
		}
	}
}

// Run renders the menu into host on th and serves the control server until
// ctx is canceled or any part fails. The server exposes the menu state at
// "/", remote clicks at "/click/{path}", "/healthz" and "/metrics".
// If host implements Runner it runs alongside. Metrics cover the buses
// the tree uses when Run starts and are removed from them when Run returns.
func (m *Menu) Run(ctx context.Context, host Host, th *ui.Thread, opt ...server.Option) error {
	slog.Info("starting menu", "title", m.Title, "version", m.Version, "items", len(m.Items))

	reg := prometheus.NewRegistry()
	bm, err := newBusMetrics(reg)
	if err != nil {
		return err
	}
	buses, uninstrument := m.Instrument(bm)
	defer uninstrument()
	slog.Debug("instrumented event buses", "count", buses)

	opt = append(opt,
		server.WithMetrics(reg),
		server.WithSimpleHealth(),
		server.WithHandler("GET /{$}", m.Handler(th)),
		server.WithHandler("POST /click/{path...}", m.ClickHandler(th)),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return th.Run(gCtx)
	})

	if err := th.Do(gCtx, func() { m.Render(host) }); err != nil {
		// Do only fails once gCtx is done, so the thread is already stopping
		_ = g.Wait()
		return fmt.Errorf("failed to render menu: %w", err)
	}

	if r, ok := host.(Runner); ok {
		g.Go(func() error {
			return r.Run(gCtx)
		})
	}

	g.Go(func() error {
		return server.New(opt...).Serve(gCtx)
	})

	return g.Wait()
}
