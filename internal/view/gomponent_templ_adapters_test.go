package view_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/a-h/templ"
	"github.com/nfrund/taskmanager/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"
)

type ctxKey struct{}

func TestAdapters(t *testing.T) {
	t.Run("gomponent inside templ", func(t *testing.T) {
		var buf bytes.Buffer
		c := view.AdaptGomponentToTempl(html.Span(g.Text("x")))
		require.NoError(t, c.Render(context.Background(), &buf))
		assert.Equal(t, "<span>x</span>", buf.String())
	})

	t.Run("templ inside gomponent keeps the context", func(t *testing.T) {
		inner := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, ctx.Value(ctxKey{}).(string))
			return err
		})
		ctx := context.WithValue(context.Background(), ctxKey{}, "from ctx")

		var buf bytes.Buffer
		node := html.Div(view.AdaptTemplToGomponent(ctx, inner))
		require.NoError(t, node.Render(&buf))
		assert.Equal(t, "<div>from ctx</div>", buf.String())
	})
}
