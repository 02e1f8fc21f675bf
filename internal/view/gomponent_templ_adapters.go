package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
)

// GomponentToTemplAdapter lets a gomponents.Node be rendered where a templ.Component is expected.
type GomponentToTemplAdapter struct {
	Node g.Node
}

// Render implements templ.Component. The context is not needed by gomponents.
func (a *GomponentToTemplAdapter) Render(_ context.Context, w io.Writer) error {
	if a.Node == nil {
		return nil
	}
	return a.Node.Render(w)
}

// AdaptGomponentToTempl converts a gomponents.Node into a templ.Component.
func AdaptGomponentToTempl(node g.Node) templ.Component {
	return &GomponentToTemplAdapter{Node: node}
}

// TemplToGomponentAdapter lets a templ.Component be placed inside a gomponents tree.
// gomponents' Render has no context parameter, so the adapter carries one.
type TemplToGomponentAdapter struct {
	Ctx       context.Context
	Component templ.Component
}

// Render implements gomponents.Node.
func (a *TemplToGomponentAdapter) Render(w io.Writer) error {
	ctx := a.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return a.Component.Render(ctx, w)
}

// AdaptTemplToGomponent converts a templ.Component into a gomponents.Node rendered with ctx.
func AdaptTemplToGomponent(ctx context.Context, component templ.Component) g.Node {
	return &TemplToGomponentAdapter{Ctx: ctx, Component: component}
}
