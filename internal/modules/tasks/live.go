package tasks

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/hub"
	"github.com/nfrund/taskmanager/internal/middleware"
	"github.com/nfrund/taskmanager/internal/modules/tasks/events"
	"github.com/nfrund/taskmanager/internal/pubsub"
	"github.com/nfrund/taskmanager/internal/rendering"
	"github.com/nfrund/taskmanager/web/src/templates/components"
)

const (
	liveSendBuffer   = 16
	liveWriteTimeout = 5 * time.Second
)

// Live pushes the re-rendered task list to every open page whenever a task
// event arrives on the bus.
type Live struct {
	svc      *Service
	hub      *hub.Hub
	sub      pubsub.Subscriber
	renderer rendering.Renderer
	origins  []string

	// mu serializes pushes so a slow render of an older list cannot
	// overwrite a newer one on the clients.
	mu sync.Mutex
}

// NewLive creates the live channel. allowedOrigins are full origins such as
// http://localhost:5173; same-origin connections are always accepted.
func NewLive(svc *Service, h *hub.Hub, sub pubsub.Subscriber, renderer rendering.Renderer, allowedOrigins []string) *Live {
	return &Live{
		svc:      svc,
		hub:      h,
		sub:      sub,
		renderer: renderer,
		origins:  originPatterns(allowedOrigins),
	}
}

// Start subscribes to the task events. Subscriptions end with ctx.
func (l *Live) Start(ctx context.Context) error {
	if err := pubsub.Subscribe(ctx, l.sub, events.Created, func(ctx context.Context, _ events.TaskCreated) error {
		return l.push(ctx)
	}); err != nil {
		return err
	}
	if err := pubsub.Subscribe(ctx, l.sub, events.Updated, func(ctx context.Context, _ events.TaskUpdated) error {
		return l.push(ctx)
	}); err != nil {
		return err
	}
	return pubsub.Subscribe(ctx, l.sub, events.Deleted, func(ctx context.Context, _ events.TaskDeleted) error {
		return l.push(ctx)
	})
}

// push renders the whole list as an out-of-band fragment and broadcasts it.
func (l *Live) push(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks, err := l.svc.List(ctx)
	if err != nil {
		return err
	}
	html, err := l.renderer.RenderComponent(ctx, components.TaskListOOB(tasks))
	if err != nil {
		return err
	}
	return l.hub.Publish(ctx, html)
}

// ServeWS upgrades the request and streams list updates until either side goes away.
// Anything the client sends is discarded.
func (l *Live) ServeWS(c echo.Context) error {
	logger := middleware.FromContext(c.Request().Context())

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: l.origins,
	})
	if err != nil {
		// Accept has already written the error response.
		logger.Warn("Failed to upgrade WebSocket connection", "event", "live_upgrade_failed", "error", err)
		return nil
	}
	ctx := conn.CloseRead(c.Request().Context())

	sub := hub.NewSubscriber(liveSendBuffer)
	select {
	case l.hub.Register <- sub:
	case <-l.hub.Done():
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return nil
	case <-ctx.Done():
		return nil
	}
	logger.Debug("Live client connected", "event", "live_connected", "subscriber_id", sub.ID)

	defer func() {
		select {
		case l.hub.Unregister <- sub:
		case <-l.hub.Done():
		}
	}()

	for {
		select {
		case msg, ok := <-sub.Send:
			if !ok {
				// Dropped as too slow, or the hub stopped.
				conn.Close(websocket.StatusGoingAway, "")
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				logger.Debug("Live client write failed", "event", "live_write_failed", "subscriber_id", sub.ID, "error", err)
				return nil
			}
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			logger.Debug("Live client disconnected", "event", "live_disconnected", "subscriber_id", sub.ID)
			return nil
		}
	}
}

// originPatterns turns origins into the host patterns websocket.Accept expects.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			slog.Warn("Ignoring unparsable CORS origin for websocket", "event", "live_bad_origin", "origin", o)
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
