package ui

import (
	"github.com/idilsaglam/todoflow/internal/model"
)

// EmptyMessage is what an Empty view shows for each filter.
func EmptyMessage(f model.Filter) (title, hint string) {
	switch f {
	case model.FilterActive:
		return "No active to-dos", "Add a new one or check the completed list"
	case model.FilterCompleted:
		return "No completed to-dos", "Nothing has been finished yet"
	default:
		return "No to-dos", "Add your first one!"
	}
}

// PriorityColor picks the theme color for a priority badge.
func PriorityColor(p model.Priority) string {
	t := Current()
	switch p.OrDefault() {
	case model.PriorityQuick:
		return t.Error
	case model.PriorityHigh:
		return t.Pending
	case model.PriorityLow:
		return t.Muted
	default:
		return t.Accent
	}
}

// PriorityBadge renders "[high]" in the priority's color; NORMAL renders
// nothing to keep lists quiet.
func PriorityBadge(p model.Priority) string {
	if p.OrDefault() == model.PriorityNormal {
		return ""
	}
	return C(PriorityColor(p), "["+p.Label()+"]")
}
