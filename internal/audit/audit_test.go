package audit

import (
	"path/filepath"
	"testing"
)

func TestAppendAssignsMonotonicSeq(t *testing.T) {
	log := New()

	e1 := log.Append("admin@example.com", ActionVaultInit, nil)
	e2 := log.Append("admin@example.com", ActionMemberAdd, map[string]string{"email": "dev@example.com"})

	if e1.Seq != 1 || e2.Seq != 2 {
		t.Fatalf("seqs = %d, %d, want 1, 2", e1.Seq, e2.Seq)
	}
	if log.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", log.Len())
	}
}

func TestLastN(t *testing.T) {
	log := New()
	for i := 0; i < 5; i++ {
		log.Append("admin@example.com", ActionIdentitySign, nil)
	}

	got := log.LastN(2)
	if len(got) != 2 {
		t.Fatalf("LastN(2) returned %d entries, want 2", len(got))
	}
	if got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("LastN(2) seqs = %d, %d, want 4, 5", got[0].Seq, got[1].Seq)
	}

	all := log.LastN(0)
	if len(all) != 5 {
		t.Fatalf("LastN(0) returned %d entries, want 5", len(all))
	}
}

func TestByActor(t *testing.T) {
	log := New()
	log.Append("admin@example.com", ActionVaultInit, nil)
	log.Append("dev@example.com", ActionIdentitySign, nil)
	log.Append("admin@example.com", ActionMemberRemove, map[string]string{"email": "dev@example.com"})

	got := log.ByActor("admin@example.com")
	if len(got) != 2 {
		t.Fatalf("ByActor returned %d entries, want 2", len(got))
	}
}

func TestForIdentity(t *testing.T) {
	log := New()
	log.Append("admin@example.com", ActionIdentityImport, map[string]string{"identity_id": "prod-key"})
	log.Append("admin@example.com", ActionIdentitySign, map[string]string{"identity_id": "prod-key", "artifact": "app.apk"})
	log.Append("admin@example.com", ActionIdentityImport, map[string]string{"identity_id": "other-key"})

	got := log.ForIdentity("prod-key")
	if len(got) != 2 {
		t.Fatalf("ForIdentity returned %d entries, want 2", len(got))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.yaml")

	log := New()
	log.Append("admin@example.com", ActionVaultInit, nil)
	log.Append("admin@example.com", ActionMemberAdd, map[string]string{"email": "dev@example.com", "role": "Signer"})

	if err := log.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded.Len() = %d, want 2", reloaded.Len())
	}

	// Appending after reload must continue the sequence, not restart it.
	e3 := reloaded.Append("admin@example.com", ActionIdentitySign, nil)
	if e3.Seq != 3 {
		t.Fatalf("e3.Seq = %d, want 3", e3.Seq)
	}
}

func TestLoadMissingFileYieldsEmptyLog(t *testing.T) {
	dir := t.TempDir()
	log, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if log.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", log.Len())
	}
}
