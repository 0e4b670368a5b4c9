package launcher

import (
	"bytes"
	"context"
	"os/exec"
)

// ExecCommandRunner satisfies CommandRunner by running name/args as a
// real child process via os/exec, the production counterpart to the
// stubs batch_test.go scripts.
func ExecCommandRunner(ctx context.Context, name string, args ...string) (stdout, stderr string, rc int, err error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runErr == nil {
		return stdout, stderr, 0, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return stdout, stderr, exitErr.ExitCode(), nil
	}
	return stdout, stderr, -1, runErr
}
