package menu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/traymenu/pkg/event"
)

// ErrInvalidConfig is returned when an item cannot be constructed as asked.
var ErrInvalidConfig = errors.New("invalid menu item config")

// DefaultBus is the bus items subscribe on unless WithBus is used.
var DefaultBus = event.New[*Item]()

// HandlerFunc is called with the item that was clicked.
type HandlerFunc func(*Item)

// Check is the tri-state checkbox marker of an item.
type Check int

const (
	// CheckNone means the item is not checkable.
	CheckNone Check = iota
	// CheckOff is an unchecked checkable item.
	CheckOff
	// CheckOn is a checked checkable item.
	CheckOn
)

func (c Check) String() string {
	switch c {
	case CheckOff:
		return "off"
	case CheckOn:
		return "on"
	default:
		return "none"
	}
}

// Item is a single menu entry, optionally with a submenu of child items.
// Items are not safe for concurrent use; all calls belong on one UI thread.
type Item struct {
	title     string
	shortcut  string
	enabled   bool
	check     Check
	separator bool

	children  []*Item
	listeners []event.Handle

	bus     *event.Bus[*Item]
	channel event.Channel
	native  Native
}

// Option configures an Item at construction.
type Option func(*itemConfig)

type itemConfig struct {
	shortcut string
	handler  HandlerFunc
	checked  bool
	bus      *event.Bus[*Item]
}

// WithShortcut sets the key that simulates a click on the item.
func WithShortcut(key string) Option {
	return func(c *itemConfig) { c.shortcut = key }
}

// WithHandler registers h as the item's first click listener.
func WithHandler(h HandlerFunc) Option {
	return func(c *itemConfig) { c.handler = h }
}

// WithAction is WithHandler for handlers that do not need the clicked item.
func WithAction(fn func()) Option {
	return WithHandler(ignoreItem(fn))
}

// Checked marks an item added with AddSub as checked.
func Checked(on bool) Option {
	return func(c *itemConfig) { c.checked = on }
}

// WithBus subscribes the item on b instead of DefaultBus.
func WithBus(b *event.Bus[*Item]) Option {
	return func(c *itemConfig) { c.bus = b }
}

// New creates an item titled title.
//
// With a handler the item starts enabled. Without one it is enabled only
// when it has a shortcut, so listeners can be attached later.
func New(title string, opts ...Option) (*Item, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalidConfig)
	}

	cfg := itemConfig{bus: DefaultBus}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bus == nil {
		return nil, fmt.Errorf("%w: nil bus for %q", ErrInvalidConfig, title)
	}

	i := &Item{
		title:    title,
		shortcut: cfg.shortcut,
		bus:      cfg.bus,
		channel:  cfg.bus.Channel(title),
	}

	if cfg.handler != nil {
		i.AddListener(cfg.handler)
	} else {
		i.enabled = cfg.shortcut != ""
	}

	return i, nil
}

// MustNew is like New but panics on error. It is meant for static menus.
func MustNew(title string, opts ...Option) *Item {
	i, err := New(title, opts...)
	if err != nil {
		panic(err)
	}
	return i
}

// Separator returns a divider item. Separators are never clickable.
func Separator() *Item {
	return &Item{separator: true}
}

// Title returns the display label.
func (i *Item) Title() string { return i.title }

// Shortcut returns the key equivalent, empty when there is none.
func (i *Item) Shortcut() string { return i.shortcut }

// Enabled reports whether the item is selectable.
func (i *Item) Enabled() bool { return i.enabled }

// Checked returns the checkbox marker.
func (i *Item) Checked() Check { return i.check }

// IsSeparator reports whether the item is a divider.
func (i *Item) IsSeparator() bool { return i.separator }

// HasSubmenu reports whether any child was ever added.
func (i *Item) HasSubmenu() bool { return i.children != nil }

// Children returns a copy of the submenu in display order.
func (i *Item) Children() []*Item {
	if i.children == nil {
		return nil
	}
	out := make([]*Item, len(i.children))
	copy(out, i.children)
	return out
}

// Listeners returns the number of click listeners.
func (i *Item) Listeners() int { return len(i.listeners) }

// AddChild appends child to the submenu and enables the item.
// Separators are appended without enabling it.
func (i *Item) AddChild(child *Item) {
	if child == nil {
		return
	}
	i.appendChild(child)
	if child.separator {
		return
	}
	i.enabled = true
	i.sync()
}

// AddSub creates an item with handler h, adds it to the submenu and returns it.
func (i *Item) AddSub(title string, h HandlerFunc, opts ...Option) (*Item, error) {
	cfg := itemConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	opts = append(opts[:len(opts):len(opts)], WithHandler(h))
	if cfg.bus == nil {
		opts = append(opts, WithBus(i.busOrDefault()))
	}

	sub, err := New(title, opts...)
	if err != nil {
		return nil, err
	}

	// the marker must be in place before the child is materialized natively
	sub.check = CheckOff
	if cfg.checked {
		sub.check = CheckOn
	}
	i.AddChild(sub)

	return sub, nil
}

// AddSubFunc is AddSub for handlers that do not need the clicked item.
func (i *Item) AddSubFunc(title string, fn func(), opts ...Option) (*Item, error) {
	return i.AddSub(title, ignoreItem(fn), opts...)
}

// AddListener subscribes h to the item's clicks and enables the item.
func (i *Item) AddListener(h HandlerFunc) {
	if i.separator || h == nil {
		return
	}
	i.listeners = append(i.listeners, i.bus.Subscribe(i.channel, event.Handler[*Item](h)))
	i.activate()
}

// OnClick is AddListener for handlers that do not need the clicked item.
func (i *Item) OnClick(fn func()) {
	i.AddListener(ignoreItem(fn))
}

// AddSeparator appends a divider to the submenu. It does not enable the item.
func (i *Item) AddSeparator() {
	i.appendChild(Separator())
}

// SetChecked moves a checkable marker to on or off.
func (i *Item) SetChecked(on bool) {
	if i.separator {
		return
	}
	i.check = CheckOff
	if on {
		i.check = CheckOn
	}
	if i.native != nil {
		i.native.SetChecked(on)
	}
}

// Dispatch notifies every current listener that the item was clicked.
// A failing listener is logged by the bus and does not keep the others
// from running.
func (i *Item) Dispatch() {
	if i.separator {
		return
	}

	slog.Debug("menu item clicked", "title", i.title, "listeners", len(i.listeners))

	if err := i.bus.Emit(i.channel, i); err != nil {
		slog.Debug("menu item dispatched with failures", "title", i.title, "error", err)
	}
}

func (i *Item) appendChild(child *Item) {
	i.children = append(i.children, child)
	if i.native != nil {
		child.bind(i.native.Add(child))
	}
}

func (i *Item) activate() {
	i.enabled = i.enabled || len(i.listeners) > 0 || i.hasItems()
	i.sync()
}

func (i *Item) hasItems() bool {
	for _, c := range i.children {
		if !c.separator {
			return true
		}
	}
	return false
}

func (i *Item) sync() {
	if i.native == nil || i.separator {
		return
	}
	i.native.SetEnabled(i.enabled)
}

// bind attaches the native handle and materializes the current submenu under it.
func (i *Item) bind(n Native) {
	if n == nil {
		return
	}
	i.native = n
	if i.separator {
		return
	}

	n.SetEnabled(i.enabled)
	if i.check != CheckNone {
		n.SetChecked(i.check == CheckOn)
	}
	for _, c := range i.children {
		c.bind(n.Add(c))
	}
}

func (i *Item) busOrDefault() *event.Bus[*Item] {
	if i.bus != nil {
		return i.bus
	}
	return DefaultBus
}

func ignoreItem(fn func()) HandlerFunc {
	if fn == nil {
		return nil
	}
	return func(*Item) { fn() }
}
