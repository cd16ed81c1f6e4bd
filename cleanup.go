package pgextdemo

import (
	"context"
	"fmt"
	"log/slog"
)

// Step is a single cleanup action.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// execStep returns a Step that executes one statement on s.
func execStep(s Session, name, query string) Step {
	return Step{
		Name: name,
		Run: func(ctx context.Context) error {
			return s.Exec(ctx, query)
		},
	}
}

// runBestEffort runs every step in order. A successful step is committed on
// its own so a later rollback cannot undo it. A failing step is logged, its
// transaction rolled back, and the next step attempted. The failures are
// returned so callers may report them; they never stop the list.
func runBestEffort(ctx context.Context, s Session, log *slog.Logger, steps []Step) []error {
	var errs []error
	for _, step := range steps {
		err := step.Run(ctx)
		if err == nil {
			err = s.Commit(ctx)
		}
		if err != nil {
			log.WarnContext(ctx, "Cleanup step failed; continuing", "step", step.Name, "err", err)
			if rbErr := s.Rollback(ctx); rbErr != nil {
				log.ErrorContext(ctx, "Rollback after failed cleanup step failed", "step", step.Name, "err", rbErr)
			}
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	return errs
}
