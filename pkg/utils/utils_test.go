package utils

import (
	"encoding/pem"
	"testing"
)

func TestFingerprint(t *testing.T) {
	if got := Fingerprint([]byte("hello")); got != "AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D" {
		t.Errorf("Got fingerprint %s; want the upper cased SHA-1 hex digest", got)
	}
}

func TestCheckPEMBlock(t *testing.T) {
	if err := CheckPEMBlock(nil, CertPEMBlockType); err == nil {
		t.Error("A nil block should be an error")
	}
	block := &pem.Block{Type: KeyPEMBlockType}
	if err := CheckPEMBlock(block, CertPEMBlockType); err == nil {
		t.Error("A mismatched block type should be an error")
	}
	block = &pem.Block{Type: CertPEMBlockType}
	if err := CheckPEMBlock(block, CertPEMBlockType); err != nil {
		t.Errorf("Got unexpected error: %s", err)
	}
}
