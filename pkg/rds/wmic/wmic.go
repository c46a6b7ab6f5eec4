package wmic

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/certops/rdscert/pkg/rds"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

type runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

type wmicBinder struct {
	run    runner
	logger log.Logger
}

func NewBinder(logger log.Logger) rds.Binder {
	return &wmicBinder{run: execRunner, logger: logger}
}

func (w *wmicBinder) SetCertificate(ctx context.Context, fingerprint string) error {
	args := []string{
		`/namespace:\\root\cimv2\TerminalServices`,
		"PATH", "Win32_TSGeneralSetting", "Set",
		`SSLCertificateSHA1Hash="` + fingerprint + `"`,
	}
	command := "wmic " + strings.Join(args, " ")

	out, err := w.run(ctx, "wmic", args...)
	if err != nil {
		level.Error(w.logger).Log("err", err, "output", out, "msg", "Setting certificate for Remote Desktop Services failed. Command: "+command)
		return fmt.Errorf("setting RDS certificate failed: %v (command: %s)", err, command)
	}
	if !strings.Contains(out, " update successful") {
		level.Error(w.logger).Log("output", out, "msg", "Failed to set certificate for Remote Desktop Services. Command: "+command)
		return fmt.Errorf("unrecognized RDS binding output (command: %s)", command)
	}
	level.Info(w.logger).Log("msg", "Certificate for RDS is set to "+fingerprint)
	return nil
}
