package providers

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func TestRunCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("需要 sh")
	}
	ctx := context.Background()

	out, err := RunCommand(ctx, "caption/script", time.Second, "sh", "-c", "echo '  a sleepy cat  '")
	if err != nil || out != "a sleepy cat" {
		t.Errorf("RunCommand() = %q, %v", out, err)
	}

	_, err = RunCommand(ctx, "caption/script", time.Second, "sh", "-c", "echo boom >&2; exit 3")
	if KindOf(err) != TransportFailure {
		t.Errorf("进程失败应为 TransportFailure, got %v", err)
	}

	_, err = RunCommand(ctx, "caption/script", time.Second, "sh", "-c", "true")
	if KindOf(err) != EmptyResponse {
		t.Errorf("无输出应为 EmptyResponse, got %v", err)
	}

	_, err = RunCommand(ctx, "caption/script", time.Second, "")
	if KindOf(err) != ConfigurationMissing {
		t.Errorf("未配置命令应为 ConfigurationMissing, got %v", err)
	}

	_, err = RunCommand(ctx, "caption/script", time.Second, "definitely-not-a-real-binary-xyz")
	if KindOf(err) != ConfigurationMissing {
		t.Errorf("命令不存在应为 ConfigurationMissing, got %v", err)
	}

	_, err = RunCommand(ctx, "caption/script", 50*time.Millisecond, "sh", "-c", "exec sleep 2")
	if KindOf(err) != TransportFailure {
		t.Errorf("超时应为 TransportFailure, got %v", err)
	}
}
