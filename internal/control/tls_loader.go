package control

import (
	cryptotls "crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
)

// LoadControlServerTLS loads mTLS config for a control-plane component,
// identified by serverName (e.g. "control-plane", a mesh sidecar's name).
func LoadControlServerTLS(certsDir string, serverName string) (*cryptotls.Config, error) {
	certPath := filepath.Clean(filepath.Join(certsDir, serverName+".crt"))
	keyPath := filepath.Clean(filepath.Join(certsDir, serverName+".key"))
	caPath := filepath.Clean(filepath.Join(certsDir, "root-ca.crt"))

	cert, err := cryptotls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to add CA certificate to pool")
	}

	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{cert},
		ClientCAs:    caPool,
		ClientAuth:   cryptotls.RequireAndVerifyClientCert,
		MinVersion:   cryptotls.VersionTLS13,
	}, nil
}
