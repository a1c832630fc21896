package store

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
)

// signEncode base64url-encodes v as a JWT segment (header or claims).
func signEncode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal jwt segment: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// SignES256 builds a compact JWT signed with an EC private key, matching
// App Store Connect's and TestFlight's auth scheme: header
// {alg: ES256, kid, typ: JWT}, claims as given.
func SignES256(claims map[string]any, keyID string, privateKey *ecdsa.PrivateKey) (string, error) {
	header := map[string]any{"alg": "ES256", "kid": keyID, "typ": "JWT"}
	headerSeg, err := signEncode(header)
	if err != nil {
		return "", err
	}
	claimsSeg, err := signEncode(claims)
	if err != nil {
		return "", err
	}
	signingInput := headerSeg + "." + claimsSeg

	digest := sha256.Sum256([]byte(signingInput))
	der, err := ecdsa.SignASN1(rand.Reader, privateKey, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	raw, err := asn1ECDSAToRaw(der, (privateKey.Curve.Params().BitSize+7)/8)
	if err != nil {
		return "", err
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(raw), nil
}

// asn1ECDSAToRaw converts a DER-encoded ECDSA signature into the fixed-width
// R||S concatenation JWS expects, per RFC 7518 §3.4.
func asn1ECDSAToRaw(der []byte, size int) ([]byte, error) {
	var parsed struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(der, &parsed); err != nil {
		return nil, fmt.Errorf("parse ecdsa signature: %w", err)
	}
	out := make([]byte, 2*size)
	parsed.R.FillBytes(out[:size])
	parsed.S.FillBytes(out[size:])
	return out, nil
}

// SignRS256 builds a compact JWT signed with an RSA private key, matching
// Google Play's and Firebase's service-account auth scheme: header
// {alg: RS256, typ: JWT}, claims as given.
func SignRS256(claims map[string]any, privateKey *rsa.PrivateKey) (string, error) {
	header := map[string]any{"alg": "RS256", "typ": "JWT"}
	headerSeg, err := signEncode(header)
	if err != nil {
		return "", err
	}
	claimsSeg, err := signEncode(claims)
	if err != nil {
		return "", err
	}
	signingInput := headerSeg + "." + claimsSeg

	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}
