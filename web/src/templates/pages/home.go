package pages

import (
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/web/src/templates/components"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// HomeTitle is the document title of the home page.
const HomeTitle = "Task Manager"

// Home is the task manager page: heading, creation form, then the list.
func Home(tasks []domain.Task) g.Node {
	return HomeWithForm(tasks, components.TaskFormData{})
}

// HomeWithForm is Home with the form pre-filled, used to redisplay a failed submit.
func HomeWithForm(tasks []domain.Task, form components.TaskFormData) g.Node {
	return Div(
		Class("max-w-xl mx-auto py-8"),
		H1(Class("text-2xl font-bold mb-4"), g.Text("Task Manager")),
		components.TaskForm(form),
		Div(Class("my-6")),
		components.TaskList(tasks),
	)
}
