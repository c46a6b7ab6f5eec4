package openssl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/certops/rdscert/pkg/convert"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

type runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

type opensslConverter struct {
	opensslPath string
	run         runner
	logger      log.Logger
}

func NewConverter(opensslPath string, logger log.Logger) convert.Converter {
	return &opensslConverter{opensslPath: opensslPath, run: execRunner, logger: logger}
}

func (o *opensslConverter) ToPKCS12(ctx context.Context, crtPath string, keyPath string, pfxPath string) error {
	args := []string{"pkcs12", "-export", "-passout", "pass:", "-in", crtPath, "-inkey", keyPath, "-out", pfxPath}
	command := o.opensslPath + " " + strings.Join(args, " ")

	out, err := o.run(ctx, o.opensslPath, args...)
	if err != nil {
		level.Error(o.logger).Log("err", err, "output", out, "msg", "Certificate conversion command failed. Command: "+command)
		return fmt.Errorf("certificate conversion command failed: %v (command: %s)", err, command)
	}
	if _, err := os.Stat(pfxPath); err != nil {
		level.Error(o.logger).Log("err", err, "msg", "Conversion command executed without errors, but the PKCS #12 certificate was not found at "+pfxPath)
		return fmt.Errorf("converted PKCS #12 certificate not found at %s (command: %s)", pfxPath, command)
	}
	level.Info(o.logger).Log("msg", "Converted certificate to PKCS #12 format", "pfx", pfxPath)
	return nil
}
