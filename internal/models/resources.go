package models

import "github.com/google/uuid"

// Resource is a raw REST API object (workbook, datasource, task, etc.).
type Resource map[string]interface{}

// String returns the string value of key, or "" if absent or not a string.
func (r Resource) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Item is a listed resource reduced to the fields the lister prints.
type Item struct {
	ID   string
	Name string
}

// Target identifies the object a task acts upon.
type Target struct {
	Kind Kind
	ID   string
}

// Task is a scheduled server task, such as an extract refresh.
type Task struct {
	ID     string
	Type   string // task-type label, e.g. "extractRefresh"
	Target Target
}

// ValidLUID reports whether id is a LUID in canonical 36-character form.
func ValidLUID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
