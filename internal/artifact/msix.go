package artifact

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// MSIXParser extracts metadata from MSIX/APPX packages, the container
// format Microsoft Partner Center submissions upload.
// MSIX/APPX are zip archives with an AppxManifest.xml descriptor at the
// root.
type MSIXParser struct{}

// appxManifest mirrors the subset of AppxManifest.xml's schema Canaveral
// needs: package identity, display name, and minimum device-family
// version.
type appxManifest struct {
	XMLName  xml.Name `xml:"Package"`
	Identity struct {
		Name    string `xml:"Name,attr"`
		Version string `xml:"Version,attr"`
	} `xml:"Identity"`
	Properties struct {
		DisplayName string `xml:"DisplayName"`
	} `xml:"Properties"`
	Dependencies struct {
		TargetDeviceFamily []struct {
			Name      string `xml:"Name,attr"`
			MinVersion string `xml:"MinVersion,attr"`
		} `xml:"TargetDeviceFamily"`
	} `xml:"Dependencies"`
}

// Parse extracts identity, version, display name, and target device
// families from AppxManifest.xml. Architecture metadata isn't recoverable
// from the manifest alone (MSIX bundles may be architecture-neutral or
// multi-architecture), so Platforms carries device families instead.
func (p *MSIXParser) Parse(path string) (*AssetInfo, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open MSIX/APPX archive: %w", err)
	}
	defer r.Close()

	var manifestFile *zip.File
	for _, f := range r.File {
		if f.Name == "AppxManifest.xml" {
			manifestFile = f
			break
		}
	}
	if manifestFile == nil {
		return nil, fmt.Errorf("AppxManifest.xml not found in archive")
	}

	rc, err := manifestFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open AppxManifest.xml: %w", err)
	}
	defer rc.Close()

	var manifest appxManifest
	if err := xml.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("parse AppxManifest.xml: %w", err)
	}

	info := &AssetInfo{
		Identifier: manifest.Identity.Name,
		Version:    manifest.Identity.Version,
		Name:       manifest.Properties.DisplayName,
		MIMEType:   MIMEWindowsMSIX,
	}

	for _, tdf := range manifest.Dependencies.TargetDeviceFamily {
		if tdf.Name != "" {
			info.Platforms = append(info.Platforms, tdf.Name+"-"+tdf.MinVersion)
		}
	}

	if err := populateFileMeta(path, info); err != nil {
		return nil, err
	}
	return info, nil
}

// populateFileMeta fills the format-agnostic FilePath/FileSize/SHA256
// fields every parser computes the same way.
func populateFileMeta(path string, info *AssetInfo) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	info.FilePath = path
	info.FileSize = fi.Size()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash file: %w", err)
	}
	info.SHA256 = hex.EncodeToString(h.Sum(nil))
	return nil
}

// isMSIXFile checks whether a ZIP file is an MSIX/APPX package by looking
// for AppxManifest.xml.
func isMSIXFile(path string) bool {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == "AppxManifest.xml" {
			return true
		}
	}
	return false
}
