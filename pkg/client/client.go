package client

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/certops/rdscert/pkg/secrets/token"
	"github.com/certops/rdscert/pkg/utils"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Certificate is the payload served by the remote certificate server. It is
// never persisted as-is; the exporter either promotes it into files plus a
// ledger record or discards it.
type Certificate struct {
	Domain      string `json:"domain"`
	Crt         string `json:"crt"`
	Key         string `json:"key"`
	Cab         string `json:"cab"`
	ValidFrom   int64  `json:"valid_from"`
	ValidTo     int64  `json:"valid_to"`
	Fingerprint string `json:"fingerprint"`
}

var ErrNoCertificate = errors.New("response from the remote server does not contain any SSL certificate")

type Remote interface {
	GetCertificate(ctx context.Context, domain string) (*Certificate, error)
}

type remoteClient struct {
	baseURL string
	secrets token.Secrets
	client  *http.Client
	logger  log.Logger
}

func NewRemote(baseURL string, secrets token.Secrets, logger log.Logger) Remote {
	return &remoteClient{
		baseURL: baseURL,
		secrets: secrets,
		client:  http.DefaultClient,
		logger:  logger,
	}
}

func (r *remoteClient) GetCertificate(ctx context.Context, domain string) (*Certificate, error) {
	authToken, err := r.secrets.GetToken()
	if err != nil {
		level.Error(r.logger).Log("err", err, "msg", "Could not obtain remote server token")
		return nil, err
	}

	reqURL := r.baseURL + "?req=ssl_certificate&domain=" + url.QueryEscape(domain)
	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", authToken)

	resp, err := r.client.Do(req)
	if err != nil {
		level.Error(r.logger).Log("err", err, "msg", "Request to the remote server failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		level.Error(r.logger).Log("status", resp.Status, "body", string(body), "msg", "Request to the remote server failed")
		return nil, fmt.Errorf("remote server returned HTTP status code %d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var cert Certificate
	if err := json.Unmarshal(body, &cert); err != nil {
		level.Error(r.logger).Log("err", err, "body", string(body), "msg", "Could not parse the response from the remote server as JSON")
		return nil, fmt.Errorf("could not parse the remote server response as JSON: %v", err)
	}
	if cert.Crt == "" {
		level.Error(r.logger).Log("body", string(body), "msg", "Response carries no certificate")
		return nil, ErrNoCertificate
	}

	r.checkFingerprint(&cert)
	return &cert, nil
}

// checkFingerprint recomputes the SHA-1 fingerprint from the PEM body and
// warns when it disagrees with the reported one. The reported value stays
// authoritative; the store and RDS tools are keyed on it downstream.
func (r *remoteClient) checkFingerprint(cert *Certificate) {
	pemBlock, _ := pem.Decode([]byte(cert.Crt))
	if err := utils.CheckPEMBlock(pemBlock, utils.CertPEMBlockType); err != nil {
		level.Warn(r.logger).Log("err", err, "msg", "Could not decode the received certificate PEM to verify its fingerprint")
		return
	}
	computed := utils.Fingerprint(pemBlock.Bytes)
	if !strings.EqualFold(computed, cert.Fingerprint) {
		level.Warn(r.logger).Log("reported", cert.Fingerprint, "computed", computed,
			"msg", "Reported fingerprint does not match the received certificate")
	}
}
