package vault

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const gitignoreContents = metadataFileName + "\n"

func loadMembers(path string) (map[string]Member, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]Member{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read members file: %w", err)
	}

	var members map[string]Member
	if err := yaml.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("parse members file: %w", err)
	}
	if members == nil {
		members = map[string]Member{}
	}
	return members, nil
}

func loadIdentities(path string) (map[string]StoredIdentity, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]StoredIdentity{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identities file: %w", err)
	}

	var identities map[string]StoredIdentity
	if err := yaml.Unmarshal(data, &identities); err != nil {
		return nil, fmt.Errorf("parse identities file: %w", err)
	}
	if identities == nil {
		identities = map[string]StoredIdentity{}
	}
	return identities, nil
}

func loadMetadata(path string) (VaultMetadata, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return VaultMetadata{}, nil
	}
	if err != nil {
		return VaultMetadata{}, fmt.Errorf("read metadata file: %w", err)
	}

	var metadata VaultMetadata
	if err := yaml.Unmarshal(data, &metadata); err != nil {
		return VaultMetadata{}, fmt.Errorf("parse metadata file: %w", err)
	}
	return metadata, nil
}

// save persists all five vault files atomically, one at a time, and
// writes a .gitignore for the local-only metadata file if absent.
func (v *TeamVault) save() error {
	if err := writeYAMLAtomic(filepath.Join(v.path, configFileName), v.config); err != nil {
		return fmt.Errorf("save vault config: %w", err)
	}
	if err := writeYAMLAtomic(filepath.Join(v.path, membersFileName), v.members); err != nil {
		return fmt.Errorf("save members: %w", err)
	}
	if err := writeYAMLAtomic(filepath.Join(v.path, identitiesFileName), v.identities); err != nil {
		return fmt.Errorf("save identities: %w", err)
	}
	if err := v.auditLog.Save(filepath.Join(v.path, auditFileName)); err != nil {
		return fmt.Errorf("save audit log: %w", err)
	}
	if err := writeYAMLAtomic(filepath.Join(v.path, metadataFileName), v.metadata); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	gitignorePath := filepath.Join(v.path, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte(gitignoreContents), 0o644); err != nil {
			return fmt.Errorf("write .gitignore: %w", err)
		}
	}

	return nil
}

// writeYAMLAtomic marshals v to YAML and writes it to path via a
// temp-file-plus-rename so a crash mid-write never corrupts the file.
func writeYAMLAtomic(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vault-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
