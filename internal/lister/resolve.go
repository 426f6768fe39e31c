package lister

import (
	"context"
	"fmt"

	"github.com/rflorenc/tablist/internal/models"
)

// ResolveTarget fetches the object task acts upon.
func ResolveTarget(ctx context.Context, src Source, task models.Task) (models.Item, error) {
	if !task.Target.Kind.Valid() {
		return models.Item{}, fmt.Errorf("task %s: invalid target type %v", task.ID, task.Target.Kind)
	}
	item, err := src.Lookup(ctx, task.Target.Kind, task.Target.ID)
	if err != nil {
		return models.Item{}, fmt.Errorf("resolving target of task %s: %w", task.ID, err)
	}
	return item, nil
}
