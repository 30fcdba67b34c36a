package mw_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/go-arrower/ipquery/mw"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("valid input", func(t *testing.T) {
		t.Parallel()

		stage := mw.Validate(validator.New(), resolveExample)

		res, err := stage(context.Background(), passingValidationValue)
		assert.NoError(t, err)
		assert.Equal(t, "resolved", res)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		stage := mw.Validate(validator.New(), exampleStageEnsureNotCalled(t))

		res, err := stage(context.Background(), exampleRequest{IP: "not-an-ip"})
		validationErrors := validator.ValidationErrors{}

		assert.True(t, errors.As(err, &validationErrors))
		assert.Len(t, validationErrors, 1)
		assert.Empty(t, res)
	})

	t.Run("with default validator", func(t *testing.T) {
		t.Parallel()

		stage := mw.Validate(nil, resolveExample)

		_, err := stage(context.Background(), passingValidationValue)
		assert.NoError(t, err)
	})
}

func TestValidateU(t *testing.T) {
	t.Parallel()

	t.Run("valid input", func(t *testing.T) {
		t.Parallel()

		stage := mw.ValidateU(validator.New(), storeExample)

		err := stage(context.Background(), passingValidationValue)
		assert.NoError(t, err)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		stage := mw.ValidateU(validator.New(), exampleStageUEnsureNotCalled(t))

		err := stage(context.Background(), exampleRequest{})
		assert.Error(t, err)
	})
}
