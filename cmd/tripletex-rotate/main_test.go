package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rotate "github.com/printerlogic/tripletex-session-rotate"
)

func TestRun(t *testing.T) {
	t.Run("returns configuration errors instead of exiting", func(t *testing.T) {
		clearConfigEnv(t)

		started := false
		err := run(context.TODO(), nil, io.Discard, io.Discard, func(any) { started = true })
		assert.ErrorContains(t, err, "invalid configuration")
		assert.False(t, started)
	})

	t.Run("starts the rotation handler", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("LOG_LEVEL", "error")
		isolateAWSConfig(t)

		var handler any
		err := run(context.TODO(), nil, io.Discard, io.Discard, func(h any) { handler = h })
		require.NoError(t, err)
		assert.IsType(t, (func(context.Context, rotate.Event) error)(nil), handler)
	})
}

// isolateAWSConfig keeps the developer's AWS profile and credentials out of the test.
func isolateAWSConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "eu-north-1")
}
