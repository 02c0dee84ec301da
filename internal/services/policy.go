package services

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNoFile        = errors.New("no file")
	ErrInvalidEvent  = errors.New("invalid storage event")
	ErrMisconfigured = errors.New("server misconfigured")
	ErrUnavailable   = errors.New("dependency unavailable")
)

// bestEffort runs fn and swallows its error after logging it. It reports
// whether fn succeeded so the caller can substitute a fallback.
func bestEffort(logCtx *slog.Logger, op string, fn func() error) bool {
	if err := fn(); err != nil {
		logCtx.Warn("Best-effort step failed, continuing.", "op", op, "error", err)
		return false
	}
	return true
}

// mustSucceed runs fn and propagates its error wrapped with op.
func mustSucceed(op string, fn func() error) error {
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
