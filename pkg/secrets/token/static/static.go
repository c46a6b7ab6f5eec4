package static

import (
	"errors"

	"github.com/certops/rdscert/pkg/secrets/token"
)

type static struct {
	token string
}

// NewStatic serves the token carried by the run configuration file.
func NewStatic(t string) token.Secrets {
	return &static{token: t}
}

func (s *static) GetToken() (string, error) {
	if s.token == "" {
		return "", errors.New("no token configured")
	}
	return s.token, nil
}
