package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInfo(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		info     buildInfo
		expected string
	}{
		"empty":    {buildInfo{}, "devel"},
		"go only":  {buildInfo{goVersion: "go1.23.0"}, "devel (go1.23.0)"},
		"revision": {buildInfo{revision: "1a2b3c", time: "2024-06-01T12:00:00Z"}, "1a2b3c from 2024-06-01T12:00:00Z"},
		"modified": {
			buildInfo{revision: "1a2b3c", time: "2024-06-01T12:00:00Z", modified: true, goVersion: "go1.23.0"},
			"1a2b3c-dirty from 2024-06-01T12:00:00Z (go1.23.0)",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.info.String())
		})
	}
}
