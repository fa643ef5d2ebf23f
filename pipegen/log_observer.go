package pipegen

import (
	"context"
	"errors"
	"log/slog"
)

// LogObserver logs run progress: start and finish at Info, each config at Debug.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns a LogObserver writing to logger, or slog.Default() when nil.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// BeforeRun implements Observer.
func (o *LogObserver) BeforeRun(ctx context.Context, runID string, total int) error {
	o.logger.InfoContext(ctx, "generation started", "run_id", runID, "pipelines", total)
	return nil
}

// OnConfig implements Observer.
func (o *LogObserver) OnConfig(ctx context.Context, runID string, cfg *PipelineConfig) error {
	o.logger.DebugContext(ctx, "pipeline generated",
		"run_id", runID,
		"pipe", cfg.Name(),
		"dataset", cfg.DatasetName,
		"components", cfg.ComponentNames(),
	)
	return nil
}

// AfterRun implements Observer.
func (o *LogObserver) AfterRun(ctx context.Context, runID string, emitted int, err error) error {
	switch {
	case err == nil:
		o.logger.InfoContext(ctx, "generation finished", "run_id", runID, "emitted", emitted)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		o.logger.WarnContext(ctx, "generation canceled", "run_id", runID, "emitted", emitted, "err", err)
	default:
		o.logger.ErrorContext(ctx, "generation failed", "run_id", runID, "emitted", emitted, "err", err)
	}
	return nil
}

var _ Observer = (*LogObserver)(nil)
