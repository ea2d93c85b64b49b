// Package backup encodes the vault as a portable JSON array and validates imported files.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/koyif/securevault/internal/vault"
)

// requiredFields must be present and non-null on every imported element.
var requiredFields = []string{"id", "username", "password"}

// Export renders entries as a 2-space indented JSON array.
func Export(entries []vault.Entry) ([]byte, error) {
	if entries == nil {
		entries = []vault.Entry{}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode entries: %w", err)
	}

	return data, nil
}

// Import parses a backup. Every failure is a format error and nothing is returned
// partially.
//
// The top-level value must be an array whose elements are objects carrying id, username
// and password. Username and password value must be non-empty, as for a new entry.
// Elements must also decode into an entry with a known category and usecase, and ids
// must be unique. A missing usecase is read as Default.
func Import(data []byte) ([]vault.Entry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, vault.NewFormat("backup must be a JSON array of entries: %v", err)
	}
	if items == nil {
		return nil, vault.NewFormat("backup must be a JSON array of entries, got null")
	}

	entries := make([]vault.Entry, 0, len(items))
	seen := make(map[string]int, len(items))

	for i, raw := range items {
		entry, err := decodeEntry(raw)
		if err != nil {
			return nil, vault.NewFormat("entry %d: %v", i, err)
		}

		if first, dup := seen[entry.ID]; dup {
			return nil, vault.NewFormat("entry %d: duplicate id %q (first seen at entry %d)", i, entry.ID, first)
		}
		seen[entry.ID] = i

		entries = append(entries, entry)
	}

	return entries, nil
}

func decodeEntry(raw json.RawMessage) (vault.Entry, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return vault.Entry{}, fmt.Errorf("not a JSON object")
	}

	for _, name := range requiredFields {
		v, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return vault.Entry{}, fmt.Errorf("missing field %q", name)
		}
	}

	var entry vault.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return vault.Entry{}, fmt.Errorf("unexpected shape: %v", err)
	}

	if entry.ID == "" {
		return vault.Entry{}, fmt.Errorf("empty id")
	}
	if strings.TrimSpace(entry.Username) == "" {
		return vault.Entry{}, fmt.Errorf("empty username")
	}
	if entry.Password.Value == "" {
		return vault.Entry{}, fmt.Errorf("empty password")
	}
	if !entry.Category.Valid() {
		return vault.Entry{}, fmt.Errorf("unknown category %q", entry.Category)
	}
	if entry.Usecase == "" {
		entry.Usecase = vault.UsecaseDefault
	}
	if !entry.Usecase.Valid() {
		return vault.Entry{}, fmt.Errorf("unknown usecase %q", entry.Usecase)
	}

	return entry, nil
}

// FileName returns the default backup file name for the date of t.
func FileName(t time.Time) string {
	return fmt.Sprintf("securevault-backup-%s.json", t.UTC().Format(time.DateOnly))
}

// WriteFile exports entries to path, replacing any existing file atomically.
func WriteFile(path string, entries []vault.Entry) error {
	data, err := Export(entries)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", path, err)
	}

	return nil
}

// ReadFile reads and validates the backup at path.
func ReadFile(path string) ([]vault.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", path, err)
	}

	return Import(data)
}
