package menu

import "context"

// Native is the toolkit handle of a rendered item. Items push their state
// into it whenever it changes.
type Native interface {
	// SetEnabled toggles whether the rendered entry is selectable.
	SetEnabled(enabled bool)

	// SetChecked shows or hides the checkmark of a checkable entry.
	SetChecked(checked bool)

	// Add renders child in this entry's submenu and returns its handle.
	// Separators may return nil.
	Add(child *Item) Native
}

// Host renders top-level items into a native menu. Hosts report user
// clicks by calling Dispatch on the clicked item from the UI thread.
type Host interface {
	Add(item *Item) Native
}

// Runner is implemented by hosts that need their own loop while the menu runs.
type Runner interface {
	Run(ctx context.Context) error
}
