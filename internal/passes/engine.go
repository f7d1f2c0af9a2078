package passes

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/store"
)

// Engine runs selected passes against a workspace, recording every run in
// the pass run log.
type Engine struct {
	store store.Store
	reg   *Registry
}

// RunOpts configures which passes to run and how.
type RunOpts struct {
	WorkspaceID string
	Passes      []string // restrict to specific pass names
	Force       bool     // ignore Interval() scheduling
}

// NewEngine creates a pass engine.
func NewEngine(st store.Store, reg *Registry) *Engine {
	return &Engine{store: st, reg: reg}
}

// Run iterates over the selected passes, checks whether each is due, runs
// it, and records the outcome. One failing pass does not stop the rest; the
// run log carries the per-pass error.
func (e *Engine) Run(ctx context.Context, opts RunOpts) error {
	log := zap.L().With(
		zap.String("component", "passes.engine"),
		zap.String("workspace", opts.WorkspaceID),
	)
	now := time.Now().UTC()

	selected, err := e.reg.Select(opts.Passes)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		log.Info("no passes selected")
		return nil
	}
	log.Info("selected passes", zap.Int("count", len(selected)))

	var ran, skipped, failed int

	for _, p := range selected {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pLog := log.With(zap.String("pass", p.Name()))

		if !opts.Force && p.Interval() > 0 {
			last, err := e.store.LastSuccess(ctx, p.Name(), opts.WorkspaceID)
			if err != nil {
				return eris.Wrapf(err, "engine: check last run for %s", p.Name())
			}
			if last != nil && now.Sub(*last) < p.Interval() {
				pLog.Debug("skipping (not due)", zap.Time("last_success", *last))
				skipped++
				continue
			}
		}

		pLog.Info("starting pass")
		run, err := e.store.StartPassRun(ctx, p.Name(), opts.WorkspaceID)
		if err != nil {
			return eris.Wrapf(err, "engine: start run log for %s", p.Name())
		}

		start := time.Now()
		result, err := p.Run(ctx, opts.WorkspaceID)
		elapsed := time.Since(start)

		if err != nil {
			pLog.Error("pass failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			if logErr := e.store.FailPassRun(ctx, run.ID, err.Error()); logErr != nil {
				pLog.Error("failed to record pass failure", zap.Error(logErr))
			}
			failed++
			continue
		}

		if err := e.store.CompletePassRun(ctx, run.ID, result); err != nil {
			pLog.Error("failed to record pass completion", zap.Error(err))
		}

		pLog.Info("pass complete",
			zap.Int("examined", result.Examined),
			zap.Int("changed", result.Changed),
			zap.Int("errors", result.Errors),
			zap.Duration("elapsed", elapsed),
		)
		ran++
	}

	log.Info("engine run complete",
		zap.Int("ran", ran),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return eris.Errorf("engine: %d of %d passes failed", failed, ran+failed)
	}
	return nil
}
