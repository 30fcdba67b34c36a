package mw

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// Validate validates the input of a stage according to its validation tags and returns in case of an error.
// The stage is not called with invalid input.
// If you don't pass a validator a default one is used.
func Validate[in, out any, F DecoratorFunc[in, out]](validate *validator.Validate, next F) F { //nolint:ireturn,lll // valid use of generics
	if validate == nil {
		validate = validator.New()
	}

	return func(ctx context.Context, in in) (out, error) {
		if err := validate.Struct(in); err != nil {
			return *new(out), err //nolint:wrapcheck // validation error is returned on purpose
		}

		return next(ctx, in)
	}
}

// ValidateU is like Validate but for stages only returning errors.
func ValidateU[in any, F DecoratorFuncUnary[in]](validate *validator.Validate, next F) F { //nolint:ireturn,lll // valid use of generics
	if validate == nil {
		validate = validator.New()
	}

	return func(ctx context.Context, in in) error {
		if err := validate.Struct(in); err != nil {
			return err //nolint:wrapcheck // validation error is returned on purpose
		}

		return next(ctx, in)
	}
}
