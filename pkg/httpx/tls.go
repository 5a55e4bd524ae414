package httpx

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// TLSConfig holds the file paths for serving HTTPS. With CAFile set, clients
// must present a certificate signed by that CA.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// Mutual reports whether client certificates are required.
func (c TLSConfig) Mutual() bool {
	return c.Enabled && c.CAFile != ""
}

// Validate checks that every configured file exists. Disabled configs are
// always valid.
func (c TLSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CertFile == "" || c.KeyFile == "" {
		return errors.New("tls enabled but cert or key file not specified")
	}

	files := []string{c.CertFile, c.KeyFile}
	if c.CAFile != "" {
		files = append(files, c.CAFile)
	}
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file %q: %w", path, err)
		}
	}
	return nil
}

// NewServerTLSConfig builds the server side of the config. The certificate
// pair itself is loaded by Server.EnableTLS.
func NewServerTLSConfig(c TLSConfig) (*tls.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if !c.Mutual() {
		return cfg, nil
	}

	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", c.CAFile)
	}

	cfg.ClientCAs = pool
	cfg.ClientAuth = tls.RequireAndVerifyClientCert
	cfg.MinVersion = tls.VersionTLS13
	return cfg, nil
}
