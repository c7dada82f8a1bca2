package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RunCommand 运行外部进程并返回去空白的标准输出。
// 进程失败归为 TransportFailure，输出为空归为 EmptyResponse。
func RunCommand(ctx context.Context, provider string, timeout time.Duration, command string, args ...string) (string, error) {
	if command == "" {
		return "", MissingConfig(provider, "command")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", MissingConfig(provider, fmt.Sprintf("command %q", command))
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", NewError(provider, TransportFailure, err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", NewError(provider, EmptyResponse, errors.New("process produced no output"))
	}
	return out, nil
}
