// Package security turns the server.tls options into the *tls.Config used by the
// HTTP listener in app.Serve. Client certificates are only verified when
// require_client_cert is set, against the bundle in ca_file.
package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/your-org/jhadepilot/internal/config"
)

// BuildServerTLSConfig loads the server key pair from cfg. TLS 1.2 is the floor.
func BuildServerTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("tls cert_file and key_file are required")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}

	out := &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}
	if cfg.RequireClientCert {
		if cfg.CAFile == "" {
			return nil, fmt.Errorf("ca_file is required when require_client_cert is set")
		}
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("append ca certs failed")
		}
		out.ClientCAs = pool
		out.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return out, nil
}
