package sentiment

import (
	"context"
	"log/slog"
)

// Fallback tries a primary analyzer once and silently degrades to a
// backup on any error. Analysis failures never reach the caller.
type Fallback struct {
	primary Analyzer
	backup  Analyzer
	logger  *slog.Logger
}

func NewFallback(primary, backup Analyzer, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, backup: backup, logger: logger}
}

func (f *Fallback) Analyze(ctx context.Context, comment string) (Result, error) {
	res, err := f.primary.Analyze(ctx, comment)
	if err == nil {
		return res, nil
	}

	f.logger.Warn("primary sentiment analyzer failed, using rule-based fallback", "error", err)
	return f.backup.Analyze(ctx, comment)
}
