// Package envelope implements the multi-recipient sealed-box encryption
// used to protect vault identity credentials. A payload is encrypted once
// with a random symmetric key, and that key is then sealed individually to
// each recipient's public key, so any one recipient's private key unwraps
// the same plaintext.
package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// algorithm identifies the sealing scheme embedded in every envelope, so a
// future version can add a new one without breaking old ciphertexts.
const algorithm = "x25519-xsalsa20poly1305-v1"

const (
	armorHeader = "-----BEGIN CANAVERAL ENVELOPE-----"
	armorFooter = "-----END CANAVERAL ENVELOPE-----"
)

// Keypair is an X25519 keypair used both to receive sealed payload keys and
// to derive the public key a vault member is identified by.
type Keypair struct {
	PublicKey  [32]byte
	PrivateKey [32]byte
}

// GenerateKeypair creates a new X25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{PublicKey: *pub, PrivateKey: *priv}, nil
}

// DerivePublicKey computes the X25519 public key for a private key loaded
// from an external source (e.g. the CANAVERAL_SIGNING_KEY environment
// variable), so a vault can identify which member a key belongs to without
// requiring the public key to be supplied alongside it.
func DerivePublicKey(privateKey [32]byte) ([32]byte, error) {
	var pub [32]byte
	out, err := curve25519.X25519(privateKey[:], curve25519.Basepoint)
	if err != nil {
		return pub, fmt.Errorf("derive public key: %w", err)
	}
	copy(pub[:], out)
	return pub, nil
}

// recipientEntry is one recipient's sealed copy of the payload key.
type recipientEntry struct {
	PublicKey []byte `json:"pub"`
	Nonce     []byte `json:"nonce"`
	SealedKey []byte `json:"sealed_key"`
}

// envelopeData is the JSON structure armored into ciphertext_text.
type envelopeData struct {
	Algorithm    string            `json:"algorithm"`
	EphemeralPub []byte            `json:"ephemeral_pub"`
	Recipients   []recipientEntry  `json:"recipients"`
	PayloadNonce []byte            `json:"payload_nonce"`
	Payload      []byte            `json:"payload"`
}

// Encrypt encrypts plaintext so that any of the listed recipient public
// keys can later decrypt it with the matching private key. The returned
// ciphertext is a textual, armored format embedding an algorithm
// identifier. No key material or plaintext is ever included unencrypted.
func Encrypt(plaintext []byte, recipients [][32]byte) (string, error) {
	if len(recipients) == 0 {
		return "", cerrors.InvalidArgumentf("encrypt requires at least one recipient")
	}

	var payloadKey [32]byte
	if _, err := rand.Read(payloadKey[:]); err != nil {
		return "", fmt.Errorf("generate payload key: %w", err)
	}

	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ephemeral keypair: %w", err)
	}

	entries := make([]recipientEntry, 0, len(recipients))
	for _, recipientPub := range recipients {
		var nonce [24]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return "", fmt.Errorf("generate recipient nonce: %w", err)
		}
		sealed := box.Seal(nil, payloadKey[:], &nonce, &recipientPub, ephemeralPriv)
		entries = append(entries, recipientEntry{
			PublicKey: append([]byte(nil), recipientPub[:]...),
			Nonce:     nonce[:],
			SealedKey: sealed,
		})
	}

	var payloadNonce [24]byte
	if _, err := rand.Read(payloadNonce[:]); err != nil {
		return "", fmt.Errorf("generate payload nonce: %w", err)
	}
	sealedPayload := secretbox.Seal(nil, plaintext, &payloadNonce, &payloadKey)

	data := envelopeData{
		Algorithm:    algorithm,
		EphemeralPub: ephemeralPub[:],
		Recipients:   entries,
		PayloadNonce: payloadNonce[:],
		Payload:      sealedPayload,
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	return armor(raw), nil
}

// Decrypt recovers the plaintext from ciphertextText using privateKey.
// Fails with a cerrors.DecryptFailed error if privateKey is not among the
// envelope's recipients, or if the payload has been tampered with.
func Decrypt(ciphertextText string, privateKey [32]byte) ([]byte, error) {
	raw, err := dearmor(ciphertextText)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.DecryptFailed, err, "malformed envelope")
	}

	var data envelopeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, cerrors.Wrap(cerrors.DecryptFailed, err, "malformed envelope")
	}
	if data.Algorithm != algorithm {
		return nil, cerrors.New(cerrors.DecryptFailed, "unsupported envelope algorithm").
			WithContext("algorithm", data.Algorithm)
	}
	if len(data.EphemeralPub) != 32 {
		return nil, cerrors.New(cerrors.DecryptFailed, "malformed envelope: ephemeral key size")
	}
	var ephemeralPub [32]byte
	copy(ephemeralPub[:], data.EphemeralPub)

	var payloadKey *[32]byte
	for _, entry := range data.Recipients {
		if len(entry.Nonce) != 24 {
			continue
		}
		var nonce [24]byte
		copy(nonce[:], entry.Nonce)

		opened, ok := box.Open(nil, entry.SealedKey, &nonce, &ephemeralPub, &privateKey)
		if !ok || len(opened) != 32 {
			continue
		}
		var key [32]byte
		copy(key[:], opened)
		payloadKey = &key
		break
	}
	if payloadKey == nil {
		return nil, cerrors.New(cerrors.DecryptFailed, "private key is not a recipient of this envelope")
	}

	if len(data.PayloadNonce) != 24 {
		return nil, cerrors.New(cerrors.DecryptFailed, "malformed envelope: payload nonce size")
	}
	var payloadNonce [24]byte
	copy(payloadNonce[:], data.PayloadNonce)

	plaintext, ok := secretbox.Open(nil, data.Payload, &payloadNonce, payloadKey)
	if !ok {
		return nil, cerrors.New(cerrors.DecryptFailed, "payload authentication failed")
	}

	return plaintext, nil
}

// IsRecipient reports whether publicKey appears among ciphertextText's
// sealed recipients, without attempting to decrypt. Useful for callers
// deciding whether re-encryption is needed without holding a private key.
func IsRecipient(ciphertextText string, publicKey [32]byte) bool {
	raw, err := dearmor(ciphertextText)
	if err != nil {
		return false
	}
	var data envelopeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return false
	}
	for _, entry := range data.Recipients {
		if len(entry.PublicKey) == 32 && [32]byte(entry.PublicKey) == publicKey {
			return true
		}
	}
	return false
}

func armor(raw []byte) string {
	encoded := base64.StdEncoding.EncodeToString(raw)
	var b strings.Builder
	b.WriteString(armorHeader)
	b.WriteString("\n")
	for i := 0; i < len(encoded); i += 64 {
		end := i + 64
		if end > len(encoded) {
			end = len(encoded)
		}
		b.WriteString(encoded[i:end])
		b.WriteString("\n")
	}
	b.WriteString(armorFooter)
	b.WriteString("\n")
	return b.String()
}

func dearmor(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, armorHeader)
	text = strings.TrimSuffix(text, armorFooter)
	text = strings.Join(strings.Fields(text), "")
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("decode envelope body: %w", err)
	}
	return raw, nil
}
