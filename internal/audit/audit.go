// Package audit implements the team vault's append-only, queryable event
// log: every membership change, identity import/export/delete, and signing
// operation is recorded with a monotonic sequence number and a timestamp.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Action names one kind of audited event. New kinds are added as plain
// string constants rather than an exhaustive Go enum so the log stays
// forward-readable if a future version adds one.
type Action string

const (
	ActionVaultInit         Action = "vault_init"
	ActionMemberAdd         Action = "member_add"
	ActionMemberRemove      Action = "member_remove"
	ActionMemberRoleChange  Action = "member_role_change"
	ActionIdentityImport    Action = "identity_import"
	ActionIdentityExport    Action = "identity_export"
	ActionIdentityDelete    Action = "identity_delete"
	ActionIdentitySign      Action = "identity_sign"
)

// Entry is one line of the audit log. Fields carries action-specific
// detail (email, role, identity_id, artifact) as plain strings — never
// credential bytes or private keys.
type Entry struct {
	Seq       int64             `yaml:"seq"`
	Timestamp time.Time         `yaml:"timestamp"`
	Actor     string            `yaml:"actor"`
	Action    Action            `yaml:"action"`
	Fields    map[string]string `yaml:"fields,omitempty"`
}

// Log is an in-memory, append-only audit trail. Append is total: it
// never fails, since persistence happens separately at the vault's save
// boundary (see Save).
type Log struct {
	mu      sync.Mutex
	entries []Entry
	nextSeq int64
}

// New creates an empty audit log.
func New() *Log {
	return &Log{nextSeq: 1}
}

// Append records actor performing action with the given detail fields,
// assigning the next monotonic sequence number. Never fails.
func (l *Log) Append(actor string, action Action, fields map[string]string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Seq:       l.nextSeq,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Fields:    fields,
	}
	l.entries = append(l.entries, entry)
	l.nextSeq++
	return entry
}

// LastN returns the n most recent entries, oldest first. If n <= 0 or
// exceeds the log length, all entries are returned.
func (l *Log) LastN(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	start := len(l.entries) - n
	out := make([]Entry, n)
	copy(out, l.entries[start:])
	return out
}

// ByActor returns all entries recorded by the given actor, in insertion order.
func (l *Log) ByActor(email string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		if e.Actor == email {
			out = append(out, e)
		}
	}
	return out
}

// ForIdentity returns all entries whose fields["identity_id"] matches id,
// in insertion order.
func (l *Log) ForIdentity(id string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		if e.Fields["identity_id"] == id {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of every entry, in insertion order.
func (l *Log) Entries() []Entry {
	return l.LastN(0)
}

// persistedLog is the on-disk YAML shape: entries plus the next sequence
// number, so a reloaded log keeps assigning strictly increasing seqs even
// if the tail entry was since queried and discarded.
type persistedLog struct {
	NextSeq int64   `yaml:"next_seq"`
	Entries []Entry `yaml:"entries"`
}

// Load reads an audit log from path. A missing file yields an empty log,
// matching the vault's "audit.yaml may not exist yet" open semantics.
func Load(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	var p persistedLog
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse audit log: %w", err)
	}

	nextSeq := p.NextSeq
	if nextSeq <= 0 {
		nextSeq = int64(len(p.Entries)) + 1
	}

	return &Log{entries: p.Entries, nextSeq: nextSeq}, nil
}

// Save writes the log to path atomically (temp file + rename) so a crash
// mid-write never leaves a truncated audit log.
func (l *Log) Save(path string) error {
	l.mu.Lock()
	p := persistedLog{NextSeq: l.nextSeq, Entries: l.entries}
	l.mu.Unlock()

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".audit-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("create temp audit file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp audit file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp audit file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename audit file: %w", err)
	}
	return nil
}
