package models

import "fmt"

// Kind is a listable resource type.
type Kind int

const (
	KindWorkbook Kind = iota
	KindDatasource
	KindProject
	KindView
	KindJob
	KindTask

	kindCount
)

var kindNames = [kindCount]string{
	KindWorkbook:   "workbook",
	KindDatasource: "datasource",
	KindProject:    "project",
	KindView:       "view",
	KindJob:        "job",
	KindTask:       "task",
}

// Kinds returns every Kind in command-line order.
func Kinds() []Kind {
	kinds := make([]Kind, kindCount)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// KindNames returns the command-line spelling of every Kind.
func KindNames() []string {
	return append([]string(nil), kindNames[:]...)
}

// ParseKind converts a command-line resource type into a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource type %q", s)
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}
