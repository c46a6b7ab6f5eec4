package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"
	"runtime"
	"strings"
)

const (
	CertPEMBlockType = "CERTIFICATE"
	KeyPEMBlockType  = "RSA PRIVATE KEY"
)

func CheckPEMBlock(pemBlock *pem.Block, blockType string) error {
	if pemBlock == nil {
		return errors.New("cannot find the next PEM formatted block")
	}
	if pemBlock.Type != blockType || len(pemBlock.Headers) != 0 {
		return errors.New("unmatched type of headers")
	}
	return nil
}

// Fingerprint returns the SHA-1 digest of DER encoded certificate bytes as
// an upper case hex string, the form certutil and wmic expect.
func Fingerprint(der []byte) string {
	sum := sha1.Sum(der)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// HasAdminRights reports whether the process runs with administrative
// privileges. On Windows it probes a device only administrators can open,
// since certutil and wmic refuse to mutate machine state without elevation.
// On other systems it always returns true.
func HasAdminRights() bool {
	if runtime.GOOS != "windows" {
		return true
	}
	f, err := os.Open("\\\\.\\PHYSICALDRIVE0")
	if err != nil {
		return false
	}
	f.Close()
	return true
}
