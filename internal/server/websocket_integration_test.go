package server_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLiveChannel_Integration verifies that a change made through the JSON API
// reaches every open page as an out-of-band list fragment.
func TestLiveChannel_Integration(t *testing.T) {
	env := setupIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.HTTP.URL, "http") + "/tasks/ws"
	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		require.NoError(t, err, "Failed to connect to the live channel")
		t.Cleanup(func() {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		})
		return conn
	}
	type push struct {
		client int
		html   string
	}
	pushes := make(chan push, 64)
	for i, conn := range []*websocket.Conn{dial(), dial()} {
		go func() {
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				pushes <- push{client: i, html: string(msg)}
			}
		}()
	}

	// Registration with the hub is asynchronous; keep creating tasks until
	// both clients have seen a push.
	api := env.HTTP.URL + env.Config.GetAPIPrefix() + "/tasks"
	var received []string
	seen := map[int]bool{}
	require.Eventually(t, func() bool {
		resp, err := http.Post(api, "application/json", strings.NewReader(`{"title":"Shared","description":"seen by all"}`))
		if err != nil {
			return false
		}
		resp.Body.Close()

		timeout := time.After(200 * time.Millisecond)
		for {
			select {
			case p := <-pushes:
				seen[p.client] = true
				received = append(received, p.html)
			case <-timeout:
				return len(seen) == 2
			}
		}
	}, 4*time.Second, 50*time.Millisecond)

	for _, html := range received {
		assert.True(t, strings.HasPrefix(html, `<div id="task-list"`))
		assert.Contains(t, html, `hx-swap-oob="true"`)
		assert.Contains(t, html, "<strong>Shared</strong>")
	}
}

func TestLiveChannel_RejectsForeignOrigin_Integration(t *testing.T) {
	env := setupIntegrationTest(t)

	wsURL := "ws" + strings.TrimPrefix(env.HTTP.URL, "http") + "/tasks/ws"
	header := http.Header{}
	header.Set("Origin", (&url.URL{Scheme: "http", Host: "evil.test"}).String())

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
