// Package config loads menu definitions from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mchmarny/traymenu/pkg/event"
	"github.com/mchmarny/traymenu/pkg/menu"
)

// ErrUnknownAction is returned when an item names an action not in the registry.
var ErrUnknownAction = errors.New("unknown action")

// Definition is the YAML form of a menu.
type Definition struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Items       []Item `yaml:"items"`
}

// Item is the YAML form of one menu entry.
type Item struct {
	Title     string `yaml:"title,omitempty"`
	Key       string `yaml:"key,omitempty"`
	Checked   *bool  `yaml:"checked,omitempty"`
	Separator bool   `yaml:"separator,omitempty"`
	Action    string `yaml:"action,omitempty"`
	Items     []Item `yaml:"items,omitempty"`
}

// Actions maps action names to click handlers.
type Actions map[string]menu.HandlerFunc

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open menu definition: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a definition, rejecting unknown fields.
func Parse(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty menu definition", menu.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("failed to parse menu definition: %w", err)
	}

	if strings.TrimSpace(def.Title) == "" {
		return nil, fmt.Errorf("%w: menu title is required", menu.ErrInvalidConfig)
	}

	return &def, nil
}

// Build turns the definition into a menu whose items subscribe on bus and
// whose actions are resolved from actions.
func (d *Definition) Build(version string, bus *event.Bus[*menu.Item], actions Actions) (*menu.Menu, error) {
	m := &menu.Menu{
		Title:       d.Title,
		Description: d.Description,
		Version:     version,
	}

	for idx, def := range d.Items {
		if def.Separator {
			m.Items = append(m.Items, menu.Separator())
			continue
		}

		h, err := actions.resolve(def)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", idx, err)
		}

		opts := []menu.Option{menu.WithBus(bus), menu.WithShortcut(def.Key)}
		if h != nil {
			opts = append(opts, menu.WithHandler(h))
		}

		it, err := menu.New(def.Title, opts...)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", idx, err)
		}
		if def.Checked != nil {
			it.SetChecked(*def.Checked)
		}

		if err := addChildren(it, def.Items, bus, actions); err != nil {
			return nil, fmt.Errorf("item %q: %w", def.Title, err)
		}

		m.Items = append(m.Items, it)
	}

	return m, nil
}

func addChildren(parent *menu.Item, defs []Item, bus *event.Bus[*menu.Item], actions Actions) error {
	for _, def := range defs {
		if def.Separator {
			parent.AddSeparator()
			continue
		}

		h, err := actions.resolve(def)
		if err != nil {
			return err
		}

		opts := []menu.Option{menu.WithBus(bus), menu.WithShortcut(def.Key)}
		if def.Checked != nil {
			opts = append(opts, menu.Checked(*def.Checked))
		}

		var it *menu.Item
		if def.Checked != nil {
			it, err = parent.AddSub(def.Title, h, opts...)
		} else {
			// not checkable, so skip AddSub and its checkbox marker
			it, err = menu.New(def.Title, append(opts, menu.WithHandler(h))...)
			if err == nil {
				parent.AddChild(it)
			}
		}
		if err != nil {
			return err
		}

		if err := addChildren(it, def.Items, bus, actions); err != nil {
			return fmt.Errorf("item %q: %w", def.Title, err)
		}
	}

	return nil
}

func (a Actions) resolve(def Item) (menu.HandlerFunc, error) {
	if def.Action == "" {
		return nil, nil
	}
	h, ok := a[def.Action]
	if !ok {
		return nil, fmt.Errorf("%w %q for %q", ErrUnknownAction, def.Action, def.Title)
	}
	return h, nil
}
