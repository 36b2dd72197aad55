package menu_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchmarny/traymenu/pkg/event"
	"github.com/mchmarny/traymenu/pkg/host/memhost"
	"github.com/mchmarny/traymenu/pkg/menu"
	"github.com/mchmarny/traymenu/pkg/server"
	"github.com/mchmarny/traymenu/pkg/ui"
)

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

func TestRun(t *testing.T) {
	bus := event.New[*menu.Item]()
	clicks := make(chan string, 4)

	quit := menu.MustNew("Quit", menu.WithBus(bus), menu.WithShortcut("q"), menu.WithHandler(func(it *menu.Item) {
		clicks <- it.Title()
	}))
	m := &menu.Menu{Title: "Run", Items: []*menu.Item{quit}}

	th := ui.NewThread(0)
	host := memhost.New(th)
	port := freePort(t)
	base := "http://127.0.0.1:" + strconv.Itoa(port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, host, th, server.WithPort(port)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, "Quit (q)\n", host.Dump())

	require.NoError(t, host.Click("Quit"))
	assert.Equal(t, "Quit", <-clicks)

	resp, err := http.Post(base+"/click/0", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "Quit", <-clicks)

	resp, err = http.Get(base + "/")
	require.NoError(t, err)
	var state menu.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	resp.Body.Close()
	assert.Equal(t, "Run", state.Title)
	require.Len(t, state.Items, 1)
	assert.Equal(t, 1, state.Items[0].Listeners)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `traymenu_events_emitted_total{channel="Quit"} 2`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("menu did not stop")
	}
}

func TestRunTwiceLeavesNoObservers(t *testing.T) {
	bus := event.New[*menu.Item]()
	m := &menu.Menu{Title: "Twice", Items: []*menu.Item{
		menu.MustNew("Ping", menu.WithBus(bus), menu.WithAction(func() {})),
	}}

	for run := 1; run <= 2; run++ {
		th := ui.NewThread(0)
		port := freePort(t)
		base := "http://127.0.0.1:" + strconv.Itoa(port)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- m.Run(ctx, memhost.New(th), th, server.WithPort(port)) }()

		require.Eventually(t, func() bool {
			resp, err := http.Get(base + "/healthz")
			if err != nil {
				return false
			}
			resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 3*time.Second, 20*time.Millisecond)
		assert.Equal(t, 1, bus.Observers(), "run %d", run)

		resp, err := http.Post(base+"/click/0", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()

		resp, err = http.Get(base + "/metrics")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Contains(t, string(body), `traymenu_events_emitted_total{channel="Ping"} 1`, "run %d", run)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("menu did not stop")
		}
		assert.Zero(t, bus.Observers(), "run %d", run)
	}
}
