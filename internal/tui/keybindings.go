package tui

// helpBinding represents a single keybinding entry for the help view.
type helpBinding struct {
	key  string
	desc string
}

func timelineBindings() []helpBinding {
	return []helpBinding{
		{"h", "Previous window"},
		{"l", "Next window"},
		{"t", "Today"},
		{"+", "Zoom in"},
		{"-", "Zoom out"},
		{"←/→", "Move cursor"},
		{"enter", "Zoom to cursor"},
		{"j", "Next service"},
		{"k", "Previous service"},
		{"tab", "Next environment"},
		{"s", "Start/stop service"},
		{"y", "Yank service URL"},
		{"r", "Refresh"},
		{"?", "Help"},
		{"q", "Quit"},
	}
}
