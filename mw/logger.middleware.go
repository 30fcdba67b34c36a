package mw

import (
	"context"
	"fmt"
	"log/slog"
)

// DecoratorFunc is a stage of the ipquery middleware returning a result, e.g. the lookup.
type DecoratorFunc[in, out any] interface {
	func(context.Context, in) (out, error)
}

// DecoratorFuncUnary is a stage only returning an error, e.g. the store.
type DecoratorFuncUnary[in any] interface {
	func(context.Context, in) error
}

// Logged wraps a stage with debug logs.
func Logged[in, out any, F DecoratorFunc[in, out]](logger *slog.Logger, next F) F { //nolint:ireturn,lll // valid use of generics
	return func(ctx context.Context, in in) (out, error) {
		name := stageName(in)

		logger.DebugContext(ctx, "executing stage",
			slog.String("stage", name),
		)

		result, err := next(ctx, in)

		if err == nil {
			logger.DebugContext(ctx, "stage executed successfully",
				slog.String("stage", name))
		} else {
			logger.DebugContext(ctx, "failed to execute stage",
				slog.String("stage", name),
				slog.String("error", err.Error()),
			)
		}

		return result, err
	}
}

// LoggedU is like Logged but for stages only returning errors.
func LoggedU[in any, F DecoratorFuncUnary[in]](logger *slog.Logger, next F) F { //nolint:ireturn,lll // valid use of generics
	return func(ctx context.Context, in in) error {
		name := stageName(in)

		logger.DebugContext(ctx, "executing stage",
			slog.String("stage", name),
		)

		err := next(ctx, in)

		if err == nil {
			logger.DebugContext(ctx, "stage executed successfully",
				slog.String("stage", name))
		} else {
			logger.DebugContext(ctx, "failed to execute stage",
				slog.String("stage", name),
				slog.String("error", err.Error()),
			)
		}

		return err
	}
}

// stageName is the type of the stage's input in the format of: packageName.structName.
// The stage function itself can not be named, as it is usually a closure.
func stageName(in any) string {
	return fmt.Sprintf("%T", in)
}
