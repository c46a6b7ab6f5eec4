package vault

import (
	"errors"
	"strings"

	"github.com/certops/rdscert/pkg/secrets/token"

	"github.com/hashicorp/vault/api"
)

type vaultSecrets struct {
	client    *api.Client
	roleID    string
	secretID  string
	tokenPath string
}

func NewVaultSecrets(address string, roleID string, secretID string, tokenPath string) (token.Secrets, error) {
	conf := api.DefaultConfig()
	conf.Address = strings.ReplaceAll(conf.Address, "https://127.0.0.1:8200", address)
	tlsConf := &api.TLSConfig{Insecure: true}
	conf.ConfigureTLS(tlsConf)
	client, err := api.NewClient(conf)
	if err != nil {
		return nil, err
	}

	err = login(client, roleID, secretID)
	if err != nil {
		return nil, err
	}
	return &vaultSecrets{client: client, roleID: roleID, secretID: secretID, tokenPath: tokenPath}, nil
}

func login(client *api.Client, roleID string, secretID string) error {
	loginPath := "auth/approle/login"
	options := map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	}
	resp, err := client.Logical().Write(loginPath, options)
	if err != nil {
		return err
	}
	client.SetToken(resp.Auth.ClientToken)
	return nil
}

func (vs *vaultSecrets) GetToken() (string, error) {
	resp, err := vs.client.Logical().Read(vs.tokenPath)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Data == nil {
		return "", errors.New("no secret found at " + vs.tokenPath)
	}
	t, ok := resp.Data["token"].(string)
	if !ok || t == "" {
		return "", errors.New("secret at " + vs.tokenPath + " carries no token field")
	}
	return t, nil
}
