package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-arrower/ipquery/resolver"
)

func TestNewIP2Location(t *testing.T) {
	t.Parallel()

	t.Run("missing database", func(t *testing.T) {
		t.Parallel()

		r, err := resolver.NewIP2Location("testdata/non-existing.BIN")
		assert.ErrorIs(t, err, resolver.ErrInvalidDatabase)
		assert.Nil(t, r)
	})
}

func TestIP2Location_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		testName string
		ip       string
	}{
		{"empty ip", ""},
		{"invalid ip", "this-is-not-an-ip-address"},
		{"with port", "203.0.113.7:443"},
	}

	r := &resolver.IP2Location{}

	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			t.Parallel()

			_, err := r.Resolve(context.Background(), tt.ip, "")
			assert.ErrorIs(t, err, resolver.ErrInvalidIP)
		})
	}
}
