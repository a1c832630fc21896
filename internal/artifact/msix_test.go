package artifact

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

const testManifest = `<?xml version="1.0" encoding="utf-8"?>
<Package xmlns="http://schemas.microsoft.com/appx/manifest/foundation/windows10">
  <Identity Name="Contoso.Example" Version="1.2.3.0" />
  <Properties>
    <DisplayName>Example App</DisplayName>
  </Properties>
  <Dependencies>
    <TargetDeviceFamily Name="Windows.Desktop" MinVersion="10.0.17763.0" />
  </Dependencies>
</Package>`

func writeTestMSIX(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.msix")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("AppxManifest.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(testManifest)); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

func TestMSIXParserExtractsIdentity(t *testing.T) {
	path := writeTestMSIX(t)

	info, err := (&MSIXParser{}).Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if info.Identifier != "Contoso.Example" {
		t.Errorf("Identifier = %q, want Contoso.Example", info.Identifier)
	}
	if info.Version != "1.2.3.0" {
		t.Errorf("Version = %q, want 1.2.3.0", info.Version)
	}
	if info.Name != "Example App" {
		t.Errorf("Name = %q, want Example App", info.Name)
	}
	if len(info.Platforms) != 1 || info.Platforms[0] != "Windows.Desktop-10.0.17763.0" {
		t.Errorf("Platforms = %v, want [Windows.Desktop-10.0.17763.0]", info.Platforms)
	}
	if info.SHA256 == "" {
		t.Error("expected SHA256 to be populated")
	}
}

func TestDetectRoutesMSIXToParser(t *testing.T) {
	path := writeTestMSIX(t)

	parser, err := Detect(path)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if _, ok := parser.(*MSIXParser); !ok {
		t.Fatalf("Detect returned %T, want *MSIXParser", parser)
	}
}
