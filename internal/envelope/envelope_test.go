package envelope

import (
	"strings"
	"testing"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	admin, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	signer, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	plaintext := []byte("secret")
	ciphertext, err := Encrypt(plaintext, [][32]byte{admin.PublicKey, signer.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	for name, kp := range map[string]*Keypair{"admin": admin, "signer": signer} {
		got, err := Decrypt(ciphertext, kp.PrivateKey)
		if err != nil {
			t.Fatalf("Decrypt as %s: %v", name, err)
		}
		if string(got) != "secret" {
			t.Fatalf("Decrypt as %s = %q, want %q", name, got, "secret")
		}
	}
}

func TestDecryptNonRecipientFails(t *testing.T) {
	admin, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	outsider, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	ciphertext, err := Encrypt([]byte("secret"), [][32]byte{admin.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	_, err = Decrypt(ciphertext, outsider.PrivateKey)
	if err == nil {
		t.Fatal("Decrypt with non-recipient key succeeded, want error")
	}
	if cerrors.KindOf(err) != cerrors.DecryptFailed {
		t.Fatalf("KindOf(err) = %v, want DecryptFailed", cerrors.KindOf(err))
	}
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	admin, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	ciphertext, err := Encrypt([]byte("secret"), [][32]byte{admin.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	tampered := strings.Replace(ciphertext, "A", "B", 1)
	_, err = Decrypt(tampered, admin.PrivateKey)
	if err == nil {
		t.Fatal("Decrypt of tampered ciphertext succeeded, want error")
	}
}

func TestEncryptRequiresRecipient(t *testing.T) {
	_, err := Encrypt([]byte("secret"), nil)
	if err == nil {
		t.Fatal("Encrypt with no recipients succeeded, want error")
	}
	if cerrors.KindOf(err) != cerrors.InvalidArgument {
		t.Fatalf("KindOf(err) = %v, want InvalidArgument", cerrors.KindOf(err))
	}
}

func TestCiphertextContainsNoSecretMaterial(t *testing.T) {
	admin, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	ciphertext, err := Encrypt([]byte("top secret credential"), [][32]byte{admin.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if strings.Contains(ciphertext, "top secret credential") {
		t.Fatal("ciphertext contains the plaintext")
	}
}

func TestDerivePublicKeyMatchesGeneratedKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	derived, err := DerivePublicKey(kp.PrivateKey)
	if err != nil {
		t.Fatalf("DerivePublicKey: %v", err)
	}
	if derived != kp.PublicKey {
		t.Fatalf("DerivePublicKey(priv) = %x, want %x", derived, kp.PublicKey)
	}
}

func TestIsRecipient(t *testing.T) {
	admin, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	outsider, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}

	ciphertext, err := Encrypt([]byte("secret"), [][32]byte{admin.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if !IsRecipient(ciphertext, admin.PublicKey) {
		t.Fatal("IsRecipient(admin) = false, want true")
	}
	if IsRecipient(ciphertext, outsider.PublicKey) {
		t.Fatal("IsRecipient(outsider) = true, want false")
	}
}
