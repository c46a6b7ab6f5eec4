package convert

import "context"

// Converter combines a PEM certificate and PEM private key into a single
// password-less PKCS #12 container suitable for store import.
type Converter interface {
	ToPKCS12(ctx context.Context, crtPath string, keyPath string, pfxPath string) error
}
