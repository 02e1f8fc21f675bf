package layouts

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/nfrund/taskmanager/internal/view"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	c "maragu.dev/gomponents/components"
	h "maragu.dev/gomponents/html"
)

const (
	htmxSrc   = "https://unpkg.com/htmx.org@2.0.4"
	htmxWSSrc = "https://unpkg.com/htmx-ext-ws@2.0.2/ws.js"

	// LiveURL is the websocket endpoint the page connects to for list updates.
	LiveURL = "/tasks/ws"
)

// Base wraps content in the HTML document shell. The body joins the live
// channel, so list fragments pushed over the websocket replace #task-list.
func Base(title string, flashes view.FlashData, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return c.HTML5(c.HTML5Props{
			Title:    CalculateTitle(title),
			Language: "en",
			Head: []g.Node{
				h.Link(h.Rel("stylesheet"), h.Href("/static/app.css")),
				h.Script(h.Src(htmxSrc)),
				h.Script(h.Src(htmxWSSrc)),
			},
			Body: []g.Node{
				hx.Ext("ws"),
				g.Attr("ws-connect", LiveURL),
				Flashes(flashes),
				view.AdaptTemplToGomponent(ctx, content),
			},
		}).Render(w)
	})
}

// Flashes renders pending flash messages. Nothing is rendered when there are none.
func Flashes(f view.FlashData) g.Node {
	if f.Empty() {
		return nil
	}
	return g.Group{
		g.Map(f.Success, func(msg string) g.Node {
			return h.Div(h.Class("flash flash-success"), h.Role("status"), g.Text(msg))
		}),
		g.Map(f.Error, func(msg string) g.Node {
			return h.Div(h.Class("flash flash-error"), h.Role("alert"), g.Text(msg))
		}),
	}
}
