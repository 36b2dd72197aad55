package menu

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/traymenu/pkg/event"
)

func newBus() *event.Bus[*Item] {
	return event.New[*Item]()
}

func TestNewRequiresTitle(t *testing.T) {
	it, err := New("", WithShortcut("q"), WithAction(func() {}))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, it)

	assert.Panics(t, func() { MustNew("") })
}

func TestNewActivation(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		enabled  bool
		listener int
	}{
		{name: "handler", opts: []Option{WithHandler(func(*Item) {})}, enabled: true, listener: 1},
		{name: "action with shortcut", opts: []Option{WithShortcut("q"), WithAction(func() {})}, enabled: true, listener: 1},
		{name: "bare", enabled: false},
		{name: "shortcut only", opts: []Option{WithShortcut("k")}, enabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := New("Item", append(tt.opts, WithBus(newBus()))...)
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, it.Enabled())
			assert.Equal(t, tt.listener, it.Listeners())
			assert.False(t, it.HasSubmenu())
			assert.Equal(t, CheckNone, it.Checked())
		})
	}
}

func TestQuitScenario(t *testing.T) {
	var got []*Item
	quit, err := New("Quit", WithBus(newBus()), WithShortcut("q"), WithHandler(func(it *Item) {
		got = append(got, it)
	}))
	require.NoError(t, err)
	assert.True(t, quit.Enabled())
	assert.Equal(t, "q", quit.Shortcut())

	quit.Dispatch()
	require.Len(t, got, 1)
	assert.Same(t, quit, got[0])
}

func TestSeparatorThenSubScenario(t *testing.T) {
	n := MustNew("Menu", WithBus(newBus()))
	assert.False(t, n.Enabled())

	n.AddSeparator()
	assert.False(t, n.Enabled(), "separators do not activate")

	calls := 0
	open, err := n.AddSub("Open", func(*Item) { calls++ })
	require.NoError(t, err)

	children := n.Children()
	require.Len(t, children, 2)
	assert.True(t, n.Enabled())
	assert.True(t, children[0].IsSeparator())
	assert.Equal(t, "Open", children[1].Title())
	assert.Same(t, open, children[1])
	assert.Equal(t, CheckOff, open.Checked())

	open.Dispatch()
	assert.Equal(t, 1, calls)
}

func TestLateListenerScenario(t *testing.T) {
	n := MustNew("X", WithBus(newBus()))
	assert.False(t, n.Enabled())

	calls := 0
	n.AddListener(func(*Item) { calls++ })
	assert.True(t, n.Enabled())

	n.Dispatch()
	assert.Equal(t, 1, calls)
}

func TestAddChildAlwaysEnables(t *testing.T) {
	for _, opts := range [][]Option{nil, {WithShortcut("x")}, {WithAction(func() {})}} {
		n := MustNew("Parent", append(opts, WithBus(newBus()))...)
		n.AddChild(MustNew("Child"))
		assert.True(t, n.Enabled())
		assert.True(t, n.HasSubmenu())
	}
}

func TestAddChildIgnoresNil(t *testing.T) {
	n := MustNew("Parent", WithBus(newBus()))
	n.AddChild(nil)
	assert.Empty(t, n.Children())
	assert.False(t, n.Enabled())
}

func TestListenersRunInOrderOnce(t *testing.T) {
	for _, count := range []int{0, 1, 5, 20} {
		t.Run(fmt.Sprint(count), func(t *testing.T) {
			n := MustNew("N", WithBus(newBus()))

			var order []int
			for i := 0; i < count; i++ {
				i := i
				n.AddListener(func(*Item) { order = append(order, i) })
			}
			assert.Equal(t, count, n.Listeners())
			assert.Equal(t, count > 0, n.Enabled())

			n.Dispatch()

			want := make([]int, count)
			for i := range want {
				want[i] = i
			}
			if count == 0 {
				want = nil
			}
			assert.Equal(t, want, order)
		})
	}
}

func TestAddListenerIgnoresNil(t *testing.T) {
	n := MustNew("N", WithBus(newBus()))
	n.AddListener(nil)
	n.OnClick(nil)
	assert.Zero(t, n.Listeners())
	assert.False(t, n.Enabled())
}

func TestAddSubHandlerShapes(t *testing.T) {
	parent := MustNew("Parent", WithBus(newBus()))

	var clicked *Item
	withItem, err := parent.AddSub("With", func(it *Item) { clicked = it }, Checked(true), WithShortcut("w"))
	require.NoError(t, err)

	voidCalls := 0
	void, err := parent.AddSubFunc("Void", func() { voidCalls++ })
	require.NoError(t, err)

	assert.Equal(t, CheckOn, withItem.Checked())
	assert.Equal(t, "w", withItem.Shortcut())
	assert.Equal(t, CheckOff, void.Checked())

	withItem.Dispatch()
	void.Dispatch()
	assert.Same(t, withItem, clicked)
	assert.Equal(t, 1, voidCalls)

	_, err = parent.AddSub("", func(*Item) {})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Len(t, parent.Children(), 2)
}

func TestAddSubUsesParentBus(t *testing.T) {
	bus := newBus()
	parent := MustNew("Parent", WithBus(bus))

	sub, err := parent.AddSubFunc("Sub", func() {})
	require.NoError(t, err)
	assert.Same(t, bus, sub.bus)
	assert.Equal(t, 1, bus.Subscribers(sub.channel))
}

func TestDispatchContainsPanics(t *testing.T) {
	n := MustNew("Fragile", WithBus(newBus()))

	var ran []string
	n.AddListener(func(*Item) { ran = append(ran, "first") })
	n.AddListener(func(*Item) { panic("broken entry") })
	n.AddListener(func(*Item) { ran = append(ran, "third") })

	assert.NotPanics(t, n.Dispatch)
	assert.Equal(t, []string{"first", "third"}, ran)
	assert.True(t, n.Enabled())
	assert.Equal(t, 3, n.Listeners())
}

func TestDispatchLogsFailureOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	n := MustNew("Broken", WithBus(newBus()), WithAction(func() { panic("nope") }))
	n.Dispatch()

	assert.Equal(t, 1, strings.Count(buf.String(), "level=ERROR"), buf.String())
	assert.Contains(t, buf.String(), "channel=Broken")
}

func TestListenerAddedDuringDispatchRunsNextTime(t *testing.T) {
	n := MustNew("Grow", WithBus(newBus()))

	calls := 0
	n.AddListener(func(it *Item) {
		calls++
		it.AddListener(func(*Item) { calls += 100 })
		it.AddChild(MustNew("Added"))
	})

	n.Dispatch()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, n.Listeners())
	assert.Len(t, n.Children(), 1)

	n.Dispatch()
	assert.Equal(t, 102, calls)
}

func TestSeparatorIsInert(t *testing.T) {
	sep := Separator()
	sep.AddListener(func(*Item) { t.Fatal("separator listener") })
	sep.SetChecked(true)
	sep.Dispatch()

	assert.True(t, sep.IsSeparator())
	assert.False(t, sep.Enabled())
	assert.Zero(t, sep.Listeners())
	assert.Equal(t, CheckNone, sep.Checked())
	assert.Empty(t, sep.Title())
}

func TestAddChildSeparatorDoesNotEnable(t *testing.T) {
	n := MustNew("Menu", WithBus(newBus()))
	n.AddChild(Separator())

	assert.False(t, n.Enabled())
	require.Len(t, n.Children(), 1)
	assert.True(t, n.Children()[0].IsSeparator())

	n.AddChild(MustNew("Entry"))
	assert.True(t, n.Enabled())
}

func TestAddChildSeparatorSkipsNativeSync(t *testing.T) {
	n := MustNew("Menu", WithBus(newBus()))
	native := &fakeNative{title: "Menu"}
	n.bind(native)

	n.AddChild(Separator())
	assert.Equal(t, []bool{false}, native.enabled)
	assert.Len(t, native.children, 1)
}

func TestSetChecked(t *testing.T) {
	n := MustNew("Toggle", WithBus(newBus()))
	assert.Equal(t, CheckNone, n.Checked())

	n.SetChecked(true)
	assert.Equal(t, CheckOn, n.Checked())
	n.SetChecked(false)
	assert.Equal(t, CheckOff, n.Checked())
	assert.Equal(t, "off", n.Checked().String())
}

func TestChildrenReturnsCopy(t *testing.T) {
	n := MustNew("Parent", WithBus(newBus()))
	n.AddChild(MustNew("A"))

	c := n.Children()
	c[0] = nil
	assert.NotNil(t, n.Children()[0])
	assert.Nil(t, MustNew("Leaf").Children())
}

// buildTree adds breadth children per level down to depth and returns how
// many items were created below root.
func buildTree(t *testing.T, root *Item, depth, breadth int) int {
	t.Helper()
	if depth == 0 {
		return 0
	}

	n := 0
	for b := 0; b < breadth; b++ {
		child, err := root.AddSubFunc(fmt.Sprintf("%s.%d", root.Title(), b), func() {}, WithShortcut(fmt.Sprint(b)))
		require.NoError(t, err)
		n += 1 + buildTree(t, child, depth-1, breadth)
	}
	return n
}

func assertTree(t *testing.T, it *Item, depth, breadth int) {
	t.Helper()

	if depth == 0 || breadth == 0 {
		assert.Empty(t, it.Children(), it.Title())
		return
	}

	children := it.Children()
	require.Len(t, children, breadth, it.Title())
	assert.True(t, it.Enabled(), it.Title())

	for b, c := range children {
		assert.Equal(t, fmt.Sprintf("%s.%d", it.Title(), b), c.Title())
		assert.Equal(t, fmt.Sprint(b), c.Shortcut())
		assert.True(t, c.Enabled())
		assertTree(t, c, depth-1, breadth)
	}
}

func TestTreeShape(t *testing.T) {
	for _, depth := range []int{0, 1, 3} {
		for _, breadth := range []int{0, 1, 3} {
			t.Run(fmt.Sprintf("d%d_b%d", depth, breadth), func(t *testing.T) {
				root := MustNew("root", WithBus(newBus()))
				created := buildTree(t, root, depth, breadth)

				want := 0
				level := 1
				for d := 0; d < depth; d++ {
					level *= breadth
					want += level
				}
				assert.Equal(t, want, created)
				assert.Equal(t, created > 0, root.Enabled())
				assertTree(t, root, depth, breadth)
			})
		}
	}
}
