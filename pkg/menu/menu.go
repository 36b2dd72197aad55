package menu

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mchmarny/traymenu/pkg/ui"
)

// Menu represents the root menu structure.
type Menu struct {
	// Title is the menu bar title
	Title string

	// Description of the menu
	Description string

	// Version of the menu
	Version string

	// Items is the list of top-level items
	Items []*Item
}

// ItemState is the serializable state of an item and its submenu.
type ItemState struct {
	// Path is the index path of the item from the root, e.g. "1/0".
	Path string `json:"path"`

	// Title is empty for separators.
	Title string `json:"title,omitempty"`

	Shortcut  string      `json:"shortcut,omitempty"`
	Enabled   bool        `json:"enabled"`
	Checked   string      `json:"checked,omitempty"`
	Separator bool        `json:"separator,omitempty"`
	Listeners int         `json:"listeners"`
	Items     []ItemState `json:"items,omitempty"`
}

// State is the serializable state of the whole menu.
type State struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Version     string      `json:"version,omitempty"`
	Items       []ItemState `json:"items,omitempty"`
}

// Snapshot captures the current state of the menu tree.
// Like every other read it must run on the UI thread.
func (m *Menu) Snapshot() State {
	return State{
		Title:       m.Title,
		Description: m.Description,
		Version:     m.Version,
		Items:       snapshotItems("", m.Items),
	}
}

func snapshotItems(prefix string, items []*Item) []ItemState {
	if len(items) == 0 {
		return nil
	}

	out := make([]ItemState, 0, len(items))
	for idx, it := range items {
		path := strconv.Itoa(idx)
		if prefix != "" {
			path = prefix + "/" + path
		}

		s := ItemState{
			Path:      path,
			Title:     it.title,
			Shortcut:  it.shortcut,
			Enabled:   it.enabled,
			Separator: it.separator,
			Listeners: len(it.listeners),
			Items:     snapshotItems(path, it.children),
		}
		if it.check != CheckNone {
			s.Checked = it.check.String()
		}
		out = append(out, s)
	}
	return out
}

// Find resolves an index path such as "1/0" to an item.
func (m *Menu) Find(path string) (*Item, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, fmt.Errorf("empty item path")
	}

	items := m.Items
	var found *Item
	for _, part := range strings.Split(path, "/") {
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid item path %q: %w", path, err)
		}
		if idx < 0 || idx >= len(items) {
			return nil, fmt.Errorf("item path %q out of range", path)
		}
		found = items[idx]
		items = found.children
	}

	return found, nil
}

// Render adds every top-level item to host and binds the returned handles.
// Items added to the tree later are rendered as they are added.
func (m *Menu) Render(host Host) {
	for _, it := range m.Items {
		it.bind(host.Add(it))
	}
	slog.Debug("menu rendered", "title", m.Title, "items", len(m.Items))
}

// Walk calls fn for every item in the tree, parents before children.
func (m *Menu) Walk(fn func(*Item)) {
	for _, it := range m.Items {
		walkItem(it, fn)
	}
}

func walkItem(it *Item, fn func(*Item)) {
	fn(it)
	for _, c := range it.children {
		walkItem(c, fn)
	}
}

// Handler returns an HTTP handler that responds with the menu state as JSON.
// The snapshot is taken on th.
func (m *Menu) Handler(th *ui.Thread) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("handling menu request",
			"method", r.Method,
			"url", r.URL.Path,
		)

		var state State
		if err := th.Do(r.Context(), func() { state = m.Snapshot() }); err != nil {
			slog.Error("failed to snapshot menu", "error", err)
			http.Error(w, "menu unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if err := json.NewEncoder(w).Encode(state); err != nil {
			slog.Error("failed to encode menu", "error", err)
			return
		}

		slog.Info("menu response sent",
			"method", r.Method,
			"url", r.URL.Path,
			"status", http.StatusOK,
		)
	})
}

// ClickHandler returns an HTTP handler that dispatches the item addressed by
// the "path" request value on th, as if it was clicked in the native menu.
func (m *Menu) ClickHandler(th *ui.Thread) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.PathValue("path")

		status := http.StatusAccepted
		err := th.Do(r.Context(), func() {
			it, err := m.Find(path)
			switch {
			case err != nil:
				status = http.StatusNotFound
			case it.separator:
				status = http.StatusConflict
			default:
				it.Dispatch()
			}
		})
		if err != nil {
			slog.Error("failed to dispatch click", "path", path, "error", err)
			status = http.StatusServiceUnavailable
		}

		slog.Info("click handled", "path", path, "status", status)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"path":   path,
			"status": http.StatusText(status),
		})
	})
}
