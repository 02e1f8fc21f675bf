package components

import (
	"strconv"

	"github.com/nfrund/taskmanager/internal/domain"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	. "maragu.dev/gomponents/html"
)

// FormErrorsID is the element that receives validation errors for an HTMX submit.
const FormErrorsID = "task-form-errors"

// TaskFormData pre-fills the form after a failed submit. The zero value is an empty form.
type TaskFormData struct {
	Title       string
	Description string
	Errors      []string
}

// TaskForm renders the task creation form. With HTMX it posts in place and
// swaps the task list; without it the browser posts and follows the redirect.
func TaskForm(data TaskFormData) g.Node {
	return taskForm(data, false)
}

// TaskFormOOB is the empty form flagged for an out-of-band swap, which clears
// the inputs after a successful HTMX submit.
func TaskFormOOB() g.Node {
	return taskForm(TaskFormData{}, true)
}

func taskForm(data TaskFormData, oob bool) g.Node {
	return Form(
		ID("task-form"),
		Class("task-form space-y-2"),
		Method("post"),
		Action("/tasks"),
		hx.Post("/tasks"),
		hx.Target("#task-list"),
		hx.Swap("outerHTML"),
		g.If(oob, hx.SwapOOB("true")),

		FormErrors(data.Errors),
		Input(
			Type("text"),
			ID("task-title"),
			Name("title"),
			Placeholder("Title"),
			Required(),
			MaxLength(strconv.Itoa(domain.MaxTitleLength)),
			Value(data.Title),
		),
		Textarea(
			ID("task-description"),
			Name("description"),
			Placeholder("Description"),
			Required(),
			MaxLength(strconv.Itoa(domain.MaxDescriptionLength)),
			g.Attr("rows", "3"),
			g.Text(data.Description),
		),
		Button(Type("submit"), g.Text("Add Task")),
	)
}

// FormErrors renders the error slot. It is always present so HTMX has a target.
func FormErrors(errs []string) g.Node {
	return Div(
		ID(FormErrorsID),
		Class("form-errors"),
		Aria("live", "polite"),
		g.If(len(errs) > 0, Ul(
			g.Map(errs, func(msg string) g.Node { return Li(g.Text(msg)) }),
		)),
	)
}
