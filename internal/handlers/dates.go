package handlers

import (
	"errors"
	"time"
)

var errInvalidDueDate = errors.New("invalid due date")

// dueDateLayouts are tried in order; layouts without a zone are read as UTC.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDueDate parses a due date and normalizes it to UTC
func parseDueDate(value string) (time.Time, error) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errInvalidDueDate
}
