package app

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logFor prefers the job logger the loop put in ctx and falls back to the
// global one, tagging the module either way.
func logFor(ctx context.Context, module string) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &log.Logger
	}
	out := l.With().Str("module", module).Logger()
	return &out
}
