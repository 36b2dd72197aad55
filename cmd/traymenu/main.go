package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mchmarny/traymenu/pkg/config"
	"github.com/mchmarny/traymenu/pkg/host/memhost"
	"github.com/mchmarny/traymenu/pkg/host/tray"
	"github.com/mchmarny/traymenu/pkg/logger"
	"github.com/mchmarny/traymenu/pkg/menu"
	"github.com/mchmarny/traymenu/pkg/server"
	"github.com/mchmarny/traymenu/pkg/ui"
)

var (
	version = "v0.0.0"  // Set at build time via -ldflags "-X main.version=version"
	commit  = "none"    // Set at build time via -ldflags "-X main.commit=commit"
	date    = "unknown" // Set at build time via -ldflags "-X main.date=date"

	port       = flag.Int("port", server.DefaultPort, "Port of the local control server")
	definition = flag.String("config", "", "Path to a YAML menu definition, built-in menu when empty")
	headless   = flag.Bool("headless", false, "Keep the menu in memory instead of the system tray")
)

func main() {
	flag.Parse()

	logger.SetDefault("traymenu", version)
	slog.Info("starting traymenu", "commit", commit, "date", date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("traymenu error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, quit context.CancelFunc) error {
	m, err := makeMenu(quit)
	if err != nil {
		return err
	}

	th := ui.NewThread(0)

	if *headless {
		return m.Run(ctx, memhost.New(th), th, server.WithPort(*port))
	}

	return tray.Start(m.Title, m.Description, func() error {
		return m.Run(ctx, tray.New(th), th, server.WithPort(*port))
	})
}

// makeMenu builds the menu from -config or falls back to the built-in one.
func makeMenu(quit context.CancelFunc) (*menu.Menu, error) {
	actions := config.Actions{
		"log":    logClick,
		"toggle": toggle,
		"quit":   func(*menu.Item) { quit() },
	}

	if *definition != "" {
		def, err := config.Load(*definition)
		if err != nil {
			return nil, err
		}
		return def.Build(version, menu.DefaultBus, actions)
	}

	status := menu.MustNew("Status")
	if _, err := status.AddSub("Refresh", logClick, menu.WithShortcut("r")); err != nil {
		return nil, err
	}
	status.AddSeparator()
	if _, err := status.AddSub("Verbose", toggle, menu.Checked(false)); err != nil {
		return nil, err
	}

	return &menu.Menu{
		Title:       fmt.Sprintf("traymenu (%s)", version),
		Description: "Tray menu with a local control server",
		Version:     version,
		Items: []*menu.Item{
			status,
			menu.Separator(),
			menu.MustNew("Quit", menu.WithShortcut("q"), menu.WithAction(quit)),
		},
	}, nil
}

func logClick(it *menu.Item) {
	slog.Info("menu item clicked", "title", it.Title(), "shortcut", it.Shortcut())
}

func toggle(it *menu.Item) {
	it.SetChecked(it.Checked() != menu.CheckOn)
	slog.Info("menu item toggled", "title", it.Title(), "checked", it.Checked().String())
}
