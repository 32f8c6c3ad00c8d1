// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package tls

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateCA(t *testing.T) {
	tmpDir := t.TempDir()
	meshID := "01HX7MZABC123DEF456GHJ"

	ca, err := GenerateCA(meshID)
	if err != nil {
		t.Fatalf("GenerateCA() error = %v", err)
	}

	if ca.Certificate == nil {
		t.Fatal("CA certificate is nil")
	}
	if ca.PrivateKey == nil {
		t.Fatal("CA private key is nil")
	}
	if !ca.Certificate.IsCA {
		t.Error("Certificate is not a CA")
	}

	expectedCN := "Armour CA " + meshID
	if ca.Certificate.Subject.CommonName != expectedCN {
		t.Errorf("CA CN = %q, want %q", ca.Certificate.Subject.CommonName, expectedCN)
	}

	expectedURI := "armour://mesh/" + meshID
	found := false
	for _, uri := range ca.Certificate.URIs {
		if uri.String() == expectedURI {
			found = true
			break
		}
	}
	if !found {
		uris := make([]string, 0, len(ca.Certificate.URIs))
		for _, u := range ca.Certificate.URIs {
			uris = append(uris, u.String())
		}
		t.Errorf("CA SAN URIs missing %q, got %v", expectedURI, uris)
	}

	if err := SaveCertificates(tmpDir, ca, nil); err != nil {
		t.Fatalf("SaveCertificates() error = %v", err)
	}

	certPath := filepath.Join(tmpDir, "root-ca.crt")
	keyPath := filepath.Join(tmpDir, "root-ca.key")

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		t.Fatalf("Failed to load CA: %v", err)
	}

	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("Failed to parse cert: %v", err)
	}

	if !x509Cert.IsCA {
		t.Error("Loaded certificate is not a CA")
	}
}

func TestGenerateServerCert(t *testing.T) {
	tmpDir := t.TempDir()
	meshID := "01HX7MZABC123DEF456GHJ"

	ca, err := GenerateCA(meshID)
	if err != nil {
		t.Fatalf("GenerateCA() error = %v", err)
	}

	serverCert, err := GenerateServerCert(ca, meshID, "control-plane")
	if err != nil {
		t.Fatalf("GenerateServerCert() error = %v", err)
	}

	if serverCert.Certificate == nil {
		t.Fatal("Server certificate is nil")
	}
	if serverCert.PrivateKey == nil {
		t.Fatal("Server private key is nil")
	}

	if err := serverCert.Certificate.CheckSignatureFrom(ca.Certificate); err != nil {
		t.Errorf("Server cert not signed by CA: %v", err)
	}

	expectedCN := "armour-control-plane"
	if serverCert.Certificate.Subject.CommonName != expectedCN {
		t.Errorf("Server CN = %q, want %q", serverCert.Certificate.Subject.CommonName, expectedCN)
	}

	expectedSAN := "armour-" + meshID
	found := false
	for _, name := range serverCert.Certificate.DNSNames {
		if name == expectedSAN {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Server SAN missing %q, got %v", expectedSAN, serverCert.Certificate.DNSNames)
	}

	hasClientAuth, hasServerAuth := false, false
	for _, usage := range serverCert.Certificate.ExtKeyUsage {
		switch usage {
		case x509.ExtKeyUsageClientAuth:
			hasClientAuth = true
		case x509.ExtKeyUsageServerAuth:
			hasServerAuth = true
		}
	}
	if !hasClientAuth || !hasServerAuth {
		t.Error("mesh server certificate should carry both ServerAuth and ClientAuth (mutual auth between sidecars)")
	}

	if err := SaveCertificates(tmpDir, ca, serverCert); err != nil {
		t.Fatalf("SaveCertificates() error = %v", err)
	}

	certPath := filepath.Join(tmpDir, "control-plane.crt")
	keyPath := filepath.Join(tmpDir, "control-plane.key")

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		t.Fatalf("Failed to load server cert: %v", err)
	}

	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("Failed to parse cert: %v", err)
	}

	if x509Cert.IsCA {
		t.Error("Server certificate should not be a CA")
	}
}

func TestSaveAndLoadCertificates(t *testing.T) {
	tmpDir := t.TempDir()
	meshID := "01HX7MZABC123DEF456GHJ"

	ca, err := GenerateCA(meshID)
	if err != nil {
		t.Fatalf("GenerateCA() error = %v", err)
	}

	serverCert, err := GenerateServerCert(ca, meshID, "control-plane")
	if err != nil {
		t.Fatalf("GenerateServerCert() error = %v", err)
	}

	if err := SaveCertificates(tmpDir, ca, serverCert); err != nil {
		t.Fatalf("SaveCertificates() error = %v", err)
	}

	files := []string{"root-ca.crt", "root-ca.key", "control-plane.crt", "control-plane.key"}
	for _, f := range files {
		path := filepath.Join(tmpDir, f)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected file %s to exist: %v", f, err)
		}
	}

	loadedCA, err := LoadCA(tmpDir)
	if err != nil {
		t.Fatalf("LoadCA() error = %v", err)
	}

	if loadedCA.Certificate == nil {
		t.Error("Loaded CA certificate is nil")
	}
	if loadedCA.PrivateKey == nil {
		t.Error("Loaded CA private key is nil")
	}
	if !loadedCA.Certificate.IsCA {
		t.Error("Loaded certificate is not a CA")
	}

	expectedCN := "Armour CA " + meshID
	if loadedCA.Certificate.Subject.CommonName != expectedCN {
		t.Errorf("Loaded CA CN = %q, want %q", loadedCA.Certificate.Subject.CommonName, expectedCN)
	}
}

func TestLoadCA_MissingFiles(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := LoadCA(tmpDir)
	if err == nil {
		t.Error("LoadCA() should return error for missing files")
	}

	certPath := filepath.Join(tmpDir, "root-ca.crt")
	if err := os.WriteFile(certPath, []byte("dummy"), 0o600); err != nil {
		t.Fatalf("Failed to create dummy cert: %v", err)
	}

	_, err = LoadCA(tmpDir)
	if err == nil {
		t.Error("LoadCA() should return error when key file is missing")
	}
}

func TestSaveCertificates_OnlyCA(t *testing.T) {
	tmpDir := t.TempDir()
	meshID := "01HX7MZABC123DEF456GHJ"

	ca, err := GenerateCA(meshID)
	if err != nil {
		t.Fatalf("GenerateCA() error = %v", err)
	}

	if err := SaveCertificates(tmpDir, ca, nil); err != nil {
		t.Fatalf("SaveCertificates() error = %v", err)
	}

	caFiles := []string{"root-ca.crt", "root-ca.key"}
	for _, f := range caFiles {
		path := filepath.Join(tmpDir, f)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected file %s to exist: %v", f, err)
		}
	}

	serverFiles := []string{"control-plane.crt", "control-plane.key"}
	for _, f := range serverFiles {
		path := filepath.Join(tmpDir, f)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("File %s should not exist", f)
		}
	}
}

func TestMeshIDExtraction(t *testing.T) {
	meshID := "01HX7MZABC123DEF456GHJ"

	ca, err := GenerateCA(meshID)
	if err != nil {
		t.Fatalf("GenerateCA() error = %v", err)
	}

	var extractedID string
	for _, uri := range ca.Certificate.URIs {
		if uri.Scheme == "armour" && uri.Host == "mesh" {
			extractedID = uri.Path[1:] // remove leading slash
			break
		}
	}

	if extractedID != meshID {
		t.Errorf("Extracted meshID = %q, want %q", extractedID, meshID)
	}
}

func TestMismatchedKeyAndCertPair(t *testing.T) {
	tmpDir := t.TempDir()
	meshID := "01HX7MZABC123DEF456GHJ"

	ca, err := GenerateCA(meshID)
	if err != nil {
		t.Fatalf("GenerateCA() error = %v", err)
	}

	serverCert1, err := GenerateServerCert(ca, meshID, "server1")
	if err != nil {
		t.Fatalf("GenerateServerCert() for server1 error = %v", err)
	}
	serverCert2, err := GenerateServerCert(ca, meshID, "server2")
	if err != nil {
		t.Fatalf("GenerateServerCert() for server2 error = %v", err)
	}

	if err := saveCert(filepath.Join(tmpDir, "mismatched.crt"), serverCert1.Certificate); err != nil {
		t.Fatalf("saveCert() error = %v", err)
	}
	if err := saveKey(filepath.Join(tmpDir, "mismatched.key"), serverCert2.PrivateKey); err != nil {
		t.Fatalf("saveKey() error = %v", err)
	}

	_, err = tls.LoadX509KeyPair(
		filepath.Join(tmpDir, "mismatched.crt"),
		filepath.Join(tmpDir, "mismatched.key"),
	)
	if err == nil {
		t.Error("Loading mismatched cert/key pair should fail")
	}
}

func TestCertificateRotation(t *testing.T) {
	tmpDir := t.TempDir()
	meshID := "01HX7MZABC123DEF456GHJ"

	ca, err := GenerateCA(meshID)
	if err != nil {
		t.Fatalf("GenerateCA() error = %v", err)
	}

	oldServerCert, err := GenerateServerCert(ca, meshID, "control-plane")
	if err != nil {
		t.Fatalf("GenerateServerCert() error = %v", err)
	}
	if err := SaveCertificates(tmpDir, ca, oldServerCert); err != nil {
		t.Fatalf("SaveCertificates() error = %v", err)
	}
	oldSerial := oldServerCert.Certificate.SerialNumber

	newServerCert, err := GenerateServerCert(ca, meshID, "control-plane")
	if err != nil {
		t.Fatalf("GenerateServerCert() rotation error = %v", err)
	}
	if oldSerial.Cmp(newServerCert.Certificate.SerialNumber) == 0 {
		t.Error("Rotated certificate should have different serial number")
	}

	if err := SaveCertificates(tmpDir, ca, newServerCert); err != nil {
		t.Fatalf("SaveCertificates() rotation error = %v", err)
	}

	loadedCA, err := LoadCA(tmpDir)
	if err != nil {
		t.Fatalf("LoadCA() after rotation error = %v", err)
	}
	if loadedCA.Certificate == nil {
		t.Fatal("Loaded CA certificate is nil after rotation")
	}
}
