package mw_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errStageFails = errors.New("some-error")

type exampleStage struct{}

type exampleRequest struct {
	IP string `validate:"required,ip"`
}

var passingValidationValue = exampleRequest{IP: "203.0.113.7"}

func resolveExample(context.Context, exampleRequest) (string, error) {
	return "resolved", nil
}

func exampleStageEnsureNotCalled(t *testing.T) func(context.Context, exampleRequest) (string, error) {
	t.Helper()

	return func(context.Context, exampleRequest) (string, error) {
		assert.Fail(t, "stage should not be called")

		return "", nil
	}
}

func storeExample(context.Context, exampleRequest) error {
	return nil
}

func exampleStageUEnsureNotCalled(t *testing.T) func(context.Context, exampleRequest) error {
	t.Helper()

	return func(context.Context, exampleRequest) error {
		assert.Fail(t, "stage should not be called")

		return nil
	}
}
