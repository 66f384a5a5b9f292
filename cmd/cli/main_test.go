package main

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteFlushesTelemetryWhenCommandFails(t *testing.T) {
	t.Cleanup(func() { shutdown = nil })

	calls := 0
	cmd := &cobra.Command{
		Use:           "import",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			shutdown = func(ctx context.Context) error {
				calls++
				return nil
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("unmapped category")
		},
	}
	cmd.SetArgs([]string{})

	err := execute(cmd)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Nil(t, shutdown)

	// A second flush is a no-op.
	flushTelemetry()
	assert.Equal(t, 1, calls)
}

func TestExecuteWithoutTelemetry(t *testing.T) {
	shutdown = nil
	cmd := &cobra.Command{
		Use:  "version",
		RunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.SetArgs([]string{})
	assert.NoError(t, execute(cmd))
}
