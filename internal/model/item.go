package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is the domain model for a todo entry.
// ID and CreatedAt are assigned once by NewItem and never change afterwards.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	CreatedAt   int64    `json:"created_at"` // unix millis, sole ordering key (desc)
	Priority    Priority `json:"priority"`
}

// NewItem builds a pending item with a random id stamped at now.
// An empty or unknown priority becomes PriorityNormal.
func NewItem(title, description string, priority Priority, now time.Time) Item {
	return Item{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Description: description,
		CreatedAt:   now.UnixMilli(),
		Priority:    priority.OrDefault(),
	}
}

// Created returns CreatedAt as a time.Time.
func (it Item) Created() time.Time { return time.UnixMilli(it.CreatedAt) }

// ValidTitle reports whether title is non-blank after trimming.
func ValidTitle(title string) bool { return strings.TrimSpace(title) != "" }

// Priority is stored by name so that reordering the constants never
// changes persisted data.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityQuick  Priority = "QUICK"
)

// Priorities lists every priority from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityQuick}

// ParsePriority accepts any casing; "" yields PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return PriorityNormal, nil
	}
	for _, p := range Priorities {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (want low, normal, high or quick)", s)
}

// Valid reports whether p is one of Priorities.
func (p Priority) Valid() bool {
	for _, q := range Priorities {
		if p == q {
			return true
		}
	}
	return false
}

// OrDefault maps "" and any unknown name to PriorityNormal.
func (p Priority) OrDefault() Priority {
	if !p.Valid() {
		return PriorityNormal
	}
	return p
}

// Next cycles LOW -> NORMAL -> HIGH -> QUICK -> LOW.
func (p Priority) Next() Priority {
	for i, q := range Priorities {
		if q == p.OrDefault() {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return PriorityNormal
}

func (p Priority) Label() string {
	switch p.OrDefault() {
	case PriorityQuick:
		return "now"
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}
