package layouts

// AppTitle is the suffix every page title carries.
const AppTitle = "TaskApp"

// CalculateTitle handles the conditional logic for the page title.
func CalculateTitle(title string) string {
	if title != "" {
		return title + " - " + AppTitle
	}
	return AppTitle
}
