package certutil

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/certops/rdscert/pkg/store"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// notAfterLayout matches certutil's US locale timestamp, e.g. "9/30/2025 11:59 PM".
const notAfterLayout = "1/2/2006 3:04 PM"

var (
	certSeparator = regexp.MustCompile(`={3,} Certificate \d+ ={3,}\r?\n`)
	hashPattern   = regexp.MustCompile(`Cert Hash\(sha1\): (\S+)`)
	cnPattern     = regexp.MustCompile(`Subject:.*?CN=([^\r\n,]+)`)
	notMatch      = regexp.MustCompile(`NotAfter:\s([^\r\n]+)`)
)

// runner executes an external command and returns its combined output.
// Tests substitute it to feed canned tool output.
type runner func(ctx context.Context, name string, args ...string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

type certutilStore struct {
	storeName string
	run       runner
	logger    log.Logger
}

// NewStore manages certificates in the named local machine store through
// the certutil tool.
func NewStore(storeName string, logger log.Logger) store.Store {
	return &certutilStore{storeName: storeName, run: execRunner, logger: logger}
}

func (c *certutilStore) Import(ctx context.Context, pfxPath string) (store.ImportOutcome, error) {
	command := "certutil -p \"\" -importpfx " + c.storeName + " " + pfxPath
	out, err := c.run(ctx, "certutil", "-p", "", "-importpfx", c.storeName, pfxPath)
	if err != nil {
		level.Error(c.logger).Log("err", err, "output", out, "msg", "Certificate import command failed. Command: "+command)
		return store.ImportFailed, fmt.Errorf("certificate import command failed: %v (command: %s)", err, command)
	}
	switch {
	case strings.Contains(out, " added to store."):
		level.Info(c.logger).Log("msg", "Added certificate to store "+c.storeName+" in local machine (certlm)")
		return store.Added, nil
	case strings.Contains(out, " already in store"):
		level.Info(c.logger).Log("msg", "Certificate already exists in store "+c.storeName+" in local machine (certlm)")
		return store.AlreadyPresent, nil
	default:
		level.Error(c.logger).Log("output", out, "msg", "Failed to add certificate to store "+c.storeName+". Command: "+command)
		return store.ImportFailed, fmt.Errorf("unrecognized certificate import output (command: %s)", command)
	}
}

func (c *certutilStore) List(ctx context.Context) ([]store.Entry, error) {
	command := "certutil -store " + c.storeName
	out, err := c.run(ctx, "certutil", "-store", c.storeName)
	if err != nil {
		level.Error(c.logger).Log("err", err, "output", out, "msg", "Listing certificates failed. Command: "+command)
		return nil, fmt.Errorf("listing certificates failed: %v (command: %s)", err, command)
	}
	if !strings.Contains(out, "CertUtil: -store command completed successfully.") {
		level.Error(c.logger).Log("output", out, "msg", "Failed to get the list of certificates in store "+c.storeName+". Command: "+command)
		return nil, fmt.Errorf("unrecognized store listing output (command: %s)", command)
	}
	return parseStoreListing(out), nil
}

// parseStoreListing splits the listing into per-certificate blocks. A block
// without a NotAfter field yields a nil NotAfter; a block without a
// fingerprint cannot be acted on and is dropped.
func parseStoreListing(out string) []store.Entry {
	blocks := certSeparator.Split(out, -1)
	if len(blocks) > 0 {
		blocks = blocks[1:]
	}

	var entries []store.Entry
	for _, block := range blocks {
		hash := hashPattern.FindStringSubmatch(block)
		if hash == nil {
			continue
		}
		entry := store.Entry{Fingerprint: strings.ToUpper(hash[1])}
		if cn := cnPattern.FindStringSubmatch(block); cn != nil {
			entry.CommonName = strings.TrimSpace(cn[1])
		}
		if na := notMatch.FindStringSubmatch(block); na != nil {
			if t, err := time.Parse(notAfterLayout, strings.TrimSpace(na[1])); err == nil {
				entry.NotAfter = &t
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func (c *certutilStore) Delete(ctx context.Context, fingerprint string) error {
	command := "certutil -delstore " + c.storeName + " " + fingerprint
	out, err := c.run(ctx, "certutil", "-delstore", c.storeName, fingerprint)
	if err != nil {
		level.Error(c.logger).Log("err", err, "output", out, "msg", "Certificate deletion command failed. Command: "+command)
		return fmt.Errorf("certificate deletion command failed: %v (command: %s)", err, command)
	}
	if !strings.Contains(strings.ToUpper(out), strings.ToUpper(fingerprint)) || !strings.Contains(out, " completed successfully") {
		level.Error(c.logger).Log("output", out, "msg", "Failed to delete certificate "+fingerprint+" from store "+c.storeName)
		return fmt.Errorf("unrecognized certificate deletion output (command: %s)", command)
	}
	level.Info(c.logger).Log("msg", "Deleted certificate "+fingerprint+" from store "+c.storeName)
	return nil
}
