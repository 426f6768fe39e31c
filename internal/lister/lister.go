// Package lister prints resources of one kind from a signed-in session.
package lister

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/rflorenc/tablist/internal/models"
)

// ErrIncomplete is returned when KeepGoing skipped tasks whose target could
// not be resolved.
var ErrIncomplete = errors.New("listing incomplete")

// Source is the session capability the lister needs.
type Source interface {
	Items(ctx context.Context, kind models.Kind) iter.Seq2[models.Item, error]
	Lookup(ctx context.Context, kind models.Kind, id string) (models.Item, error)
	Tasks(ctx context.Context) ([]models.Task, error)
}

// Lister writes one line per listed item to Out.
type Lister struct {
	Source Source
	Out    io.Writer
	Logger *slog.Logger
	// KeepGoing logs and skips tasks whose target lookup fails instead of
	// aborting. The listing still ends with ErrIncomplete.
	KeepGoing bool
}

// List prints every item of kind in retrieval order.
func (l *Lister) List(ctx context.Context, kind models.Kind) error {
	if kind == models.KindTask {
		return l.listTasks(ctx)
	}
	return l.listItems(ctx, kind)
}

// listItems prints "<id> <name>" per item, walking all pages.
func (l *Lister) listItems(ctx context.Context, kind models.Kind) error {
	n := 0
	for item, err := range l.Source.Items(ctx, kind) {
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(l.Out, "%s %s\n", item.ID, item.Name); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		n++
	}
	l.logger().Info("listed resources", "type", kind.String(), "count", n)
	return nil
}

// listTasks prints "<id> <task_type> <target_name>" for the first page of tasks.
func (l *Lister) listTasks(ctx context.Context) error {
	tasks, err := l.Source.Tasks(ctx)
	if err != nil {
		return err
	}
	skipped := 0
	for _, task := range tasks {
		target, err := ResolveTarget(ctx, l.Source, task)
		if err != nil {
			if !l.KeepGoing {
				return err
			}
			l.logger().Error("skipping task", "task", task.ID, "error", err)
			skipped++
			continue
		}
		if _, err := fmt.Fprintf(l.Out, "%s %s %s\n", task.ID, task.Type, target.Name); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	l.logger().Info("listed tasks", "count", len(tasks)-skipped, "skipped", skipped)
	if skipped > 0 {
		return fmt.Errorf("%w: %d of %d tasks skipped", ErrIncomplete, skipped, len(tasks))
	}
	return nil
}

func (l *Lister) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l.Logger
}
