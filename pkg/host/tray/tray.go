// Package tray renders menus into the operating system tray using fyne.io/systray.
package tray

import (
	"context"
	"log/slog"
	"sync"

	"fyne.io/systray"

	"github.com/mchmarny/traymenu/pkg/menu"
)

// Poster queues work on the UI thread.
type Poster interface {
	Post(fn func())
}

// Start runs the tray event loop on the calling goroutine, which must be
// the main one, and calls ready on a new goroutine once the tray is up.
// The tray quits when ready returns and Start returns its error.
func Start(title, tooltip string, ready func() error) error {
	errc := make(chan error, 1)

	systray.Run(func() {
		systray.SetTitle(title)
		systray.SetTooltip(tooltip)
		go func() {
			errc <- ready()
			systray.Quit()
		}()
	}, func() {
		slog.Debug("tray exited")
	})

	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

// Host adds items to the tray and forwards clicks to the UI thread.
type Host struct {
	poster Poster
	done   chan struct{}
	once   sync.Once
}

// New returns a host that posts clicks to p.
func New(p Poster) *Host {
	return &Host{
		poster: p,
		done:   make(chan struct{}),
	}
}

// Add implements menu.Host.
func (h *Host) Add(item *menu.Item) menu.Native {
	if item.IsSeparator() {
		systray.AddSeparator()
		return nil
	}

	var mi *systray.MenuItem
	if item.Checked() != menu.CheckNone {
		mi = systray.AddMenuItemCheckbox(item.Title(), tooltip(item), item.Checked() == menu.CheckOn)
	} else {
		mi = systray.AddMenuItem(item.Title(), tooltip(item))
	}

	return h.wrap(mi, item)
}

// Run implements menu.Runner. It stops click forwarding once ctx is done.
func (h *Host) Run(ctx context.Context) error {
	<-ctx.Done()
	h.once.Do(func() { close(h.done) })
	return nil
}

func (h *Host) wrap(mi *systray.MenuItem, item *menu.Item) *entry {
	e := &entry{host: h, mi: mi}
	go h.forward(mi, item)
	return e
}

func (h *Host) forward(mi *systray.MenuItem, item *menu.Item) {
	for {
		select {
		case <-h.done:
			return
		case <-mi.ClickedCh:
			slog.Debug("tray item clicked", "title", item.Title())
			h.poster.Post(item.Dispatch)
		}
	}
}

type entry struct {
	host *Host
	mi   *systray.MenuItem
}

func (e *entry) SetEnabled(enabled bool) {
	if enabled {
		e.mi.Enable()
	} else {
		e.mi.Disable()
	}
}

func (e *entry) SetChecked(checked bool) {
	if checked {
		e.mi.Check()
	} else {
		e.mi.Uncheck()
	}
}

func (e *entry) Add(child *menu.Item) menu.Native {
	if child.IsSeparator() {
		e.mi.AddSeparator()
		return nil
	}

	var mi *systray.MenuItem
	if child.Checked() != menu.CheckNone {
		mi = e.mi.AddSubMenuItemCheckbox(child.Title(), tooltip(child), child.Checked() == menu.CheckOn)
	} else {
		mi = e.mi.AddSubMenuItem(child.Title(), tooltip(child))
	}

	return e.host.wrap(mi, child)
}

// systray has no key equivalents, so shortcuts are only shown as a hint.
func tooltip(item *menu.Item) string {
	if item.Shortcut() == "" {
		return item.Title()
	}
	return item.Title() + " (" + item.Shortcut() + ")"
}
