package components

import (
	"fmt"

	"github.com/nfrund/taskmanager/internal/domain"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	. "maragu.dev/gomponents/html"
)

// TaskListID is the id of the list container every task mutation replaces.
const TaskListID = "task-list"

// TaskList renders every task in order, or the empty state.
func TaskList(tasks []domain.Task) g.Node {
	return taskList(tasks, false)
}

// TaskListOOB is TaskList flagged for an out-of-band swap, as pushed over the live channel.
func TaskListOOB(tasks []domain.Task) g.Node {
	return taskList(tasks, true)
}

func taskList(tasks []domain.Task, oob bool) g.Node {
	return Div(
		ID(TaskListID),
		Class("task-list"),
		g.If(oob, hx.SwapOOB("true")),
		g.If(len(tasks) == 0, P(Class("text-gray-500"), g.Text("No tasks yet."))),
		g.If(len(tasks) > 0, Ul(Class("space-y-2"), g.Map(tasks, taskItem))),
	)
}

func taskItem(t domain.Task) g.Node {
	return Li(
		ID(fmt.Sprintf("task-%d", t.ID)),
		Class("task-item"),
		Div(
			Strong(g.Text(t.Title)),
			P(g.Text(t.Description)),
		),
		// The form posts to the fallback route; HTMX turns the submit into a DELETE.
		Form(
			Method("post"),
			Action(fmt.Sprintf("/tasks/%d/delete", t.ID)),
			hx.Delete(fmt.Sprintf("/tasks/%d", t.ID)),
			hx.Target("#"+TaskListID),
			hx.Swap("outerHTML"),
			hx.Confirm(fmt.Sprintf("Delete %q?", t.Title)),
			Button(Type("submit"), Aria("label", "Delete "+t.Title), g.Text("Delete")),
		),
	)
}
