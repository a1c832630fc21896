// Package cli handles command-line interface concerns.
package cli

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/lucasilverentand/canaveral/internal/cerrors"
	"github.com/lucasilverentand/canaveral/internal/store/apple"
	"github.com/lucasilverentand/canaveral/internal/store/firebase"
	"github.com/lucasilverentand/canaveral/internal/store/googleplay"
	"github.com/lucasilverentand/canaveral/internal/store/microsoft"
)

// readEnvOrFile resolves a value that may either be literal content (a
// PEM block or raw JSON) or a filesystem path to a file holding that
// content, the contract APP_STORE_CONNECT_API_KEY and
// GOOGLE_PLAY_SERVICE_ACCOUNT_KEY both follow.
func readEnvOrFile(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "-----BEGIN") || strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}
	data, err := os.ReadFile(trimmed)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", trimmed, err)
	}
	return string(data), nil
}

// parseECPrivateKey accepts PKCS8 or SEC1 ("EC PRIVATE KEY") PEM blocks,
// the two forms Apple's .p8 download and hand-rolled keys take.
func parseECPrivateKey(pemText string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, cerrors.InvalidArgumentf("no PEM block found in APP_STORE_CONNECT_API_KEY")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, cerrors.InvalidArgumentf("APP_STORE_CONNECT_API_KEY is not an EC private key")
		}
		return ecKey, nil
	}
	return x509.ParseECPrivateKey(block.Bytes)
}

// AppleCredentials holds the resolved App Store Connect / TestFlight
// authentication material, read from the environment.
type AppleCredentials struct {
	KeyID    string
	IssuerID string
	TeamID   string
}

// LoadAppleConfig builds an apple.Config from APP_STORE_CONNECT_* env vars.
func LoadAppleConfig() (apple.Config, error) {
	keyID := os.Getenv("APP_STORE_CONNECT_API_KEY_ID")
	issuerID := os.Getenv("APP_STORE_CONNECT_ISSUER_ID")
	if keyID == "" || issuerID == "" {
		return apple.Config{}, cerrors.InvalidArgumentf("APP_STORE_CONNECT_API_KEY_ID and APP_STORE_CONNECT_ISSUER_ID are required")
	}
	pemText, err := readEnvOrFile(os.Getenv("APP_STORE_CONNECT_API_KEY"))
	if err != nil {
		return apple.Config{}, err
	}
	if pemText == "" {
		return apple.Config{}, cerrors.InvalidArgumentf("APP_STORE_CONNECT_API_KEY is required")
	}
	privateKey, err := parseECPrivateKey(pemText)
	if err != nil {
		return apple.Config{}, cerrors.Wrap(cerrors.InvalidArgument, err, "parse APP_STORE_CONNECT_API_KEY")
	}
	return apple.Config{
		KeyID:      keyID,
		IssuerID:   issuerID,
		TeamID:     os.Getenv("APP_STORE_CONNECT_TEAM_ID"),
		PrivateKey: privateKey,
	}, nil
}

// serviceAccountJSON is the subset of a Google service-account key file
// Canaveral needs to sign JWTs.
type serviceAccountJSON struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

func parseServiceAccount(raw string) (serviceAccountJSON, *rsa.PrivateKey, error) {
	var sa serviceAccountJSON
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return sa, nil, cerrors.Wrap(cerrors.InvalidArgument, err, "parse service account JSON")
	}
	block, _ := pem.Decode([]byte(sa.PrivateKey))
	if block == nil {
		return sa, nil, cerrors.InvalidArgumentf("service account JSON has no private_key PEM block")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return sa, nil, cerrors.Wrap(cerrors.InvalidArgument, err, "parse service account private key")
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return sa, nil, cerrors.InvalidArgumentf("service account private key is not RSA")
	}
	return sa, rsaKey, nil
}

// resolveServiceAccount reads a service-account JSON document from an
// explicit --service-account flag, falling back to
// GOOGLE_PLAY_SERVICE_ACCOUNT_KEY and then GOOGLE_APPLICATION_CREDENTIALS.
func resolveServiceAccount(flagValue string) (string, error) {
	for _, candidate := range []string{flagValue, os.Getenv("GOOGLE_PLAY_SERVICE_ACCOUNT_KEY"), os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		return readEnvOrFile(candidate)
	}
	return "", cerrors.InvalidArgumentf("a Google service account key is required (--service-account, GOOGLE_PLAY_SERVICE_ACCOUNT_KEY, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// LoadGooglePlayConfig builds a googleplay.Config from a service-account
// JSON document resolved via resolveServiceAccount.
func LoadGooglePlayConfig(serviceAccountFlag string) (googleplay.Config, error) {
	raw, err := resolveServiceAccount(serviceAccountFlag)
	if err != nil {
		return googleplay.Config{}, err
	}
	sa, key, err := parseServiceAccount(raw)
	if err != nil {
		return googleplay.Config{}, err
	}
	return googleplay.Config{
		ClientEmail: sa.ClientEmail,
		PrivateKey:  key,
		TokenURI:    sa.TokenURI,
	}, nil
}

// LoadFirebaseConfig builds a firebase.Config from FIREBASE_* env vars.
// FIREBASE_TOKEN, when set, is used as the bearer token directly;
// otherwise a service account is resolved the same way as Google Play's.
func LoadFirebaseConfig() (firebase.Config, error) {
	projectNumber := os.Getenv("FIREBASE_PROJECT_ID")
	appID := os.Getenv("FIREBASE_APP_ID")
	if projectNumber == "" || appID == "" {
		return firebase.Config{}, cerrors.InvalidArgumentf("FIREBASE_PROJECT_ID and FIREBASE_APP_ID are required")
	}

	if token := os.Getenv("FIREBASE_TOKEN"); token != "" {
		return firebase.Config{ProjectNumber: projectNumber, AppID: appID, Token: token}, nil
	}

	raw, err := resolveServiceAccount("")
	if err != nil {
		return firebase.Config{}, err
	}
	sa, key, err := parseServiceAccount(raw)
	if err != nil {
		return firebase.Config{}, err
	}
	return firebase.Config{
		ProjectNumber: projectNumber,
		AppID:         appID,
		ClientEmail:   sa.ClientEmail,
		PrivateKey:    key,
		TokenURI:      sa.TokenURI,
	}, nil
}

// LoadMicrosoftConfig builds a microsoft.Config from explicit flags,
// falling back to MS_* env vars.
func LoadMicrosoftConfig(tenantID, clientID, clientSecret string) (microsoft.Config, error) {
	if tenantID == "" {
		tenantID = os.Getenv("MS_TENANT_ID")
	}
	if clientID == "" {
		clientID = os.Getenv("MS_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("MS_CLIENT_SECRET")
	}
	if tenantID == "" || clientID == "" || clientSecret == "" {
		return microsoft.Config{}, cerrors.InvalidArgumentf("--tenant-id, --client-id, and --client-secret (or MS_TENANT_ID/MS_CLIENT_ID/MS_CLIENT_SECRET) are required")
	}
	return microsoft.Config{TenantID: tenantID, ClientID: clientID, ClientSecret: clientSecret}, nil
}

// SigningKeyFromEnv reads CANAVERAL_SIGNING_KEY, the vault authentication
// material, and returns it as-is without decoding it.
func SigningKeyFromEnv() (string, error) {
	v := os.Getenv("CANAVERAL_SIGNING_KEY")
	if v == "" {
		return "", cerrors.InvalidArgumentf("CANAVERAL_SIGNING_KEY is not set")
	}
	return v, nil
}
