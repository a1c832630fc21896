// Package identity loads and verifies code-signing credentials: Android
// release keystores, PEM certificate/key pairs, and the raw signatures
// produced when a vault identity signs an artifact.
package identity

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

// JKS magic bytes: 0xFEEDFEED
var jksMagic = []byte{0xFE, 0xED, 0xFE, 0xED}

// ErrJKSFormat is returned when a Java KeyStore is detected.
var ErrJKSFormat = errors.New("java keystore (JKS) format detected")

// Signature is the result of signing an artifact digest with a vault
// identity's private key. It carries no key material, only the proof.
type Signature struct {
	Algorithm string // "ECDSA", "RSA", or "Ed25519"
	CertHash  string // SHA-256 of the DER certificate, lowercase hex
	Value     string // base64-encoded signature bytes
}

// SignArtifactDigest signs a SHA-256 digest with privateKey, producing a
// Signature tied to cert for later verification. Used by
// `canaveral signing sign` once the artifact's digest has been computed.
func SignArtifactDigest(privateKey crypto.PrivateKey, cert *x509.Certificate, digest [32]byte) (*Signature, error) {
	var sig []byte
	var err error
	var algo string

	switch key := privateKey.(type) {
	case *ecdsa.PrivateKey:
		algo = "ECDSA"
		sig, err = ecdsa.SignASN1(rand.Reader, key, digest[:])
	case *rsa.PrivateKey:
		algo = "RSA"
		sig, err = rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	case ed25519.PrivateKey:
		algo = "Ed25519"
		sig = ed25519.Sign(key, digest[:])
	default:
		return nil, fmt.Errorf("unsupported key type: %T", privateKey)
	}
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}

	return &Signature{
		Algorithm: algo,
		CertHash:  ComputeCertHash(cert),
		Value:     base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// VerifyArtifactDigest verifies a Signature against a digest and the
// certificate's public key. Used by `canaveral signing verify`.
func VerifyArtifactDigest(sig *Signature, cert *x509.Certificate, digest [32]byte) error {
	if ComputeCertHash(cert) != sig.CertHash {
		return fmt.Errorf("signature was produced with a different certificate")
	}

	raw, err := base64.StdEncoding.DecodeString(sig.Value)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	switch pub := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest[:], raw) {
			return fmt.Errorf("ECDSA signature verification failed")
		}
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], raw); err != nil {
			pssOpts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}
			if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], raw, pssOpts); err != nil {
				return fmt.Errorf("RSA signature verification failed: %w", err)
			}
		}
	case ed25519.PublicKey:
		if !ed25519.Verify(pub, digest[:], raw) {
			return fmt.Errorf("Ed25519 signature verification failed")
		}
	default:
		return fmt.Errorf("unsupported public key type: %T", cert.PublicKey)
	}

	return nil
}

// ComputeCertHash computes the SHA-256 hash of the DER-encoded certificate.
func ComputeCertHash(cert *x509.Certificate) string {
	h := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(h[:])
}

// detectJKS checks if data starts with JKS magic bytes.
func detectJKS(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], jksMagic)
}

// LoadPKCS12 loads a private key and certificate from PKCS12 data.
// Security: the password is never echoed back in errors.
func LoadPKCS12(data []byte, password string) (crypto.PrivateKey, *x509.Certificate, error) {
	if detectJKS(data) {
		return nil, nil, ErrJKSFormat
	}

	privateKey, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, nil, fmt.Errorf("parse PKCS12: %w", err)
	}
	return privateKey, cert, nil
}

// LoadPKCS12WithSecurePassword loads a private key and certificate from
// PKCS12 data. The password byte slice is zeroed after use.
func LoadPKCS12WithSecurePassword(data []byte, password []byte) (crypto.PrivateKey, *x509.Certificate, error) {
	defer zeroBytes(password)

	if detectJKS(data) {
		return nil, nil, ErrJKSFormat
	}

	privateKey, cert, err := pkcs12.Decode(data, string(password))
	if err != nil {
		return nil, nil, fmt.Errorf("parse PKCS12: %w", err)
	}
	return privateKey, cert, nil
}

// zeroBytes zeroes a byte slice to clear sensitive data from memory.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// LoadPKCS12File loads a private key and certificate from a PKCS12 file
// (an Android release keystore, typically).
func LoadPKCS12File(path, password string) (crypto.PrivateKey, *x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read keystore file: %w", err)
	}
	return LoadPKCS12WithSecurePassword(data, []byte(password))
}

// LoadPEM loads a private key and certificate from PEM files.
func LoadPEM(keyPath, certPath string) (crypto.PrivateKey, *x509.Certificate, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read key file: %w", err)
	}

	var keyBlock *pem.Block
	remaining := keyData
	for {
		keyBlock, remaining = pem.Decode(remaining)
		if keyBlock == nil {
			return nil, nil, fmt.Errorf("no private key found in PEM file")
		}
		if keyBlock.Type == "PRIVATE KEY" ||
			keyBlock.Type == "EC PRIVATE KEY" ||
			keyBlock.Type == "RSA PRIVATE KEY" {
			break
		}
	}

	var privateKey crypto.PrivateKey
	privateKey, err = x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		privateKey, err = x509.ParseECPrivateKey(keyBlock.Bytes)
		if err != nil {
			privateKey, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
			if err != nil {
				return nil, nil, fmt.Errorf("parse private key: %w", err)
			}
		}
	}

	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read cert file: %w", err)
	}

	certBlock, _ := pem.Decode(certData)
	if certBlock == nil {
		return nil, nil, fmt.Errorf("decode PEM certificate")
	}

	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse certificate: %w", err)
	}

	return privateKey, cert, nil
}

// JKSConversionHelp returns help text for converting JKS to PKCS12.
func JKSConversionHelp(jksPath string) string {
	dir := filepath.Dir(jksPath)
	base := filepath.Base(jksPath)
	p12Name := strings.TrimSuffix(strings.TrimSuffix(base, ".jks"), ".keystore") + ".p12"
	p12Path := filepath.Join(dir, p12Name)

	return fmt.Sprintf(`Error: Java KeyStore (JKS) format detected

JKS files must be converted to PKCS12 format first. Run:

  keytool -importkeystore -srckeystore %s -destkeystore %s -deststoretype PKCS12

Then import the .p12 file:

  canaveral signing team identity import <id> %s --type=android-keystore
`, jksPath, p12Path, p12Path)
}
