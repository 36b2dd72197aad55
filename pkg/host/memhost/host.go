// Package memhost renders menus into memory. It backs headless mode and
// tests, delivering simulated clicks the same way a native toolkit would.
package memhost

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mchmarny/traymenu/pkg/menu"
)

// Poster queues work on the UI thread.
type Poster interface {
	Post(fn func())
}

// Entry is the rendered form of one item.
type Entry struct {
	Title     string
	Shortcut  string
	Separator bool
	Enabled   bool
	Checked   bool
	Entries   []*Entry

	host *Host
	item *menu.Item
}

// SetEnabled implements menu.Native.
func (e *Entry) SetEnabled(enabled bool) {
	e.host.mu.Lock()
	defer e.host.mu.Unlock()
	e.Enabled = enabled
}

// SetChecked implements menu.Native.
func (e *Entry) SetChecked(checked bool) {
	e.host.mu.Lock()
	defer e.host.mu.Unlock()
	e.Checked = checked
}

// Add implements menu.Native.
func (e *Entry) Add(child *menu.Item) menu.Native {
	c := e.host.newEntry(child)

	e.host.mu.Lock()
	e.Entries = append(e.Entries, c)
	e.host.mu.Unlock()

	return c
}

// Host keeps rendered entries in memory.
type Host struct {
	mu      sync.Mutex
	poster  Poster
	entries []*Entry
}

// New returns a host that delivers clicks through p.
// A nil p delivers clicks synchronously on the caller.
func New(p Poster) *Host {
	return &Host{poster: p}
}

// Add implements menu.Host.
func (h *Host) Add(item *menu.Item) menu.Native {
	e := h.newEntry(item)

	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()

	return e
}

func (h *Host) newEntry(item *menu.Item) *Entry {
	return &Entry{
		Title:     item.Title(),
		Shortcut:  item.Shortcut(),
		Separator: item.IsSeparator(),
		host:      h,
		item:      item,
	}
}

// Entries returns the rendered top-level entries.
func (h *Host) Entries() []*Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Lookup finds an entry by its title path, e.g. "File/Open".
func (h *Host) Lookup(path string) (*Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.entries
	var found *Entry
	for _, title := range strings.Split(path, "/") {
		found = nil
		for _, e := range entries {
			if !e.Separator && e.Title == title {
				found = e
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("no rendered entry %q in %q", title, path)
		}
		entries = found.Entries
	}

	return found, nil
}

// Click simulates the user activating the entry at path. Disabled entries
// ignore clicks like a native menu would.
func (h *Host) Click(path string) error {
	e, err := h.Lookup(path)
	if err != nil {
		return err
	}

	h.mu.Lock()
	enabled := e.Enabled
	h.mu.Unlock()

	if !enabled {
		slog.Debug("ignoring click on disabled entry", "path", path)
		return nil
	}

	if h.poster == nil {
		e.item.Dispatch()
		return nil
	}
	h.poster.Post(e.item.Dispatch)

	return nil
}

// Shortcut simulates pressing key, clicking the first enabled entry in the
// tree bound to it. It reports whether an entry matched.
func (h *Host) Shortcut(key string) bool {
	if key == "" {
		return false
	}

	h.mu.Lock()
	e := findShortcut(h.entries, key)
	h.mu.Unlock()

	if e == nil {
		return false
	}

	if h.poster == nil {
		e.item.Dispatch()
	} else {
		h.poster.Post(e.item.Dispatch)
	}
	return true
}

func findShortcut(entries []*Entry, key string) *Entry {
	for _, e := range entries {
		if e.Enabled && e.Shortcut == key {
			return e
		}
		if found := findShortcut(e.Entries, key); found != nil {
			return found
		}
	}
	return nil
}

// Dump renders the entry tree as indented text, one entry per line.
func (h *Host) Dump() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var sb strings.Builder
	dump(&sb, h.entries, 0)
	return sb.String()
}

func dump(sb *strings.Builder, entries []*Entry, depth int) {
	for _, e := range entries {
		sb.WriteString(strings.Repeat("  ", depth))
		switch {
		case e.Separator:
			sb.WriteString("---")
		default:
			if e.Checked {
				sb.WriteString("[x] ")
			}
			sb.WriteString(e.Title)
			if e.Shortcut != "" {
				sb.WriteString(" (" + e.Shortcut + ")")
			}
			if !e.Enabled {
				sb.WriteString(" [disabled]")
			}
		}
		sb.WriteString("\n")
		dump(sb, e.Entries, depth+1)
	}
}
