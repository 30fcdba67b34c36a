package cmd

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

// osOutputMu serialises the tests redirecting os.Stdout and os.Stderr.
var osOutputMu sync.Mutex

// TestExecute runs the ipquery cli with args and returns everything it printed and its error.
// The configuration is taken from vip, if nil DefaultViper is used.
// Output written directly to os.Stdout or os.Stderr, e.g. by the logger, is included.
func TestExecute(t *testing.T, vip *viper.Viper, args ...string) (string, error) {
	t.Helper()

	if vip == nil {
		vip = DefaultViper()
	}

	cli := NewIPQueryCLI(vip)
	cli.SetArgs(args)

	var (
		printed bytes.Buffer
		err     error
	)

	cli.SetOut(&printed)
	cli.SetErr(&printed)

	logged := captureOSOutput(t, func() {
		err = cli.Execute()
	})

	return printed.String() + logged, err
}

// captureOSOutput returns what run writes to os.Stdout and os.Stderr.
func captureOSOutput(t *testing.T, run func()) string {
	t.Helper()

	osOutputMu.Lock()
	defer osOutputMu.Unlock()

	r, w, err := os.Pipe()
	if !assert.NoError(t, err) {
		run()

		return ""
	}

	stdout, stderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = w, w

	// read while run writes, so a full pipe does not block it
	captured := make(chan string)

	go func() {
		all, _ := io.ReadAll(r)
		captured <- string(all)
	}()

	run()

	os.Stdout, os.Stderr = stdout, stderr

	assert.NoError(t, w.Close())

	output := <-captured

	assert.NoError(t, r.Close())

	return output
}
