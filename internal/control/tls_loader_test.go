package control

import (
	"path/filepath"
	"testing"

	armourtls "github.com/holomush/armour/internal/tls"
)

func TestLoadControlServerTLS(t *testing.T) {
	dir := t.TempDir()

	ca, err := armourtls.GenerateCA("mesh-1")
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	serverCert, err := armourtls.GenerateServerCert(ca, "mesh-1", "control-plane")
	if err != nil {
		t.Fatalf("GenerateServerCert: %v", err)
	}
	if err := armourtls.SaveCertificates(dir, ca, serverCert); err != nil {
		t.Fatalf("SaveCertificates: %v", err)
	}

	cfg, err := LoadControlServerTLS(dir, "control-plane")
	if err != nil {
		t.Fatalf("LoadControlServerTLS: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("expected 1 certificate, got %d", len(cfg.Certificates))
	}
	if cfg.ClientCAs == nil {
		t.Error("expected ClientCAs pool to be populated")
	}
}

func TestLoadControlServerTLS_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadControlServerTLS(dir, "control-plane"); err == nil {
		t.Error("expected error for missing certificate files")
	}
}

func TestLoadControlServerTLS_TraversalNameFailsToLoad(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadControlServerTLS(dir, filepath.Join("..", "escape")); err == nil {
		t.Error("expected error when certificate load fails for a traversal-cleaned name")
	}
}
