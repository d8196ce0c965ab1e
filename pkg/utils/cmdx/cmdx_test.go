package cmdx_test

import (
	"context"
	"testing"
	"time"

	"github.com/ccdrover/ccdrover/pkg/utils/cmdx"
	"github.com/m-mizutani/gt"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("captures stdout", func(t *testing.T) {
		out, err := cmdx.Run(ctx, "echo", []string{"hello"})
		gt.NoError(t, err)
		gt.Equal(t, out.Stdout, "hello")
	})

	t.Run("non-zero exit is an error", func(t *testing.T) {
		_, err := cmdx.Run(ctx, "false", nil)
		gt.Error(t, err)
		gt.Equal(t, cmdx.ExitCode(err), 1)
	})

	t.Run("timeout is distinguishable", func(t *testing.T) {
		_, err := cmdx.Run(ctx, "sleep", []string{"5"}, cmdx.WithTimeout(50*time.Millisecond))
		gt.Error(t, err)
		gt.V(t, cmdx.IsTimeout(err)).Equal(true)
	})

	t.Run("working directory", func(t *testing.T) {
		out, err := cmdx.Run(ctx, "pwd", nil, cmdx.WithDir("/tmp"))
		gt.NoError(t, err)
		gt.Equal(t, out.Stdout, "/tmp")
	})

	t.Run("extra environment", func(t *testing.T) {
		out, err := cmdx.Run(ctx, "sh", []string{"-c", "echo $CCDROVER_TEST_VAR"},
			cmdx.WithEnv(map[string]string{"CCDROVER_TEST_VAR": "42"}))
		gt.NoError(t, err)
		gt.Equal(t, out.Stdout, "42")
	})
}
