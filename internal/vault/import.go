package vault

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ImportPolicy decides how an imported collection is combined with the vault.
type ImportPolicy string

const (
	// ImportReplace discards the current collection and keeps the imported one.
	ImportReplace ImportPolicy = "replace"

	// ImportKeep merges by id; on a clash the existing entry wins.
	ImportKeep ImportPolicy = "keep"

	// ImportOverwrite merges by id; on a clash the imported entry replaces the existing
	// one in place.
	ImportOverwrite ImportPolicy = "overwrite"

	// ImportReject merges by id and fails without changes if any id clashes.
	ImportReject ImportPolicy = "reject"
)

// ParseImportPolicy parses a policy name. The empty string yields ImportReplace.
func ParseImportPolicy(s string) (ImportPolicy, error) {
	switch p := ImportPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ImportReplace, nil
	case ImportReplace, ImportKeep, ImportOverwrite, ImportReject:
		return p, nil
	default:
		return "", NewValidation("unknown import policy %q (expected one of: replace, keep, overwrite, reject)", s)
	}
}

// ImportResult summarises an import.
type ImportResult struct {
	Policy   ImportPolicy `json:"policy" yaml:"policy"`
	Added    int          `json:"added" yaml:"added"`
	Replaced int          `json:"replaced" yaml:"replaced"`
	Skipped  int          `json:"skipped" yaml:"skipped"`
	Removed  int          `json:"removed" yaml:"removed"`
	Total    int          `json:"total" yaml:"total"`
}

// Import combines entries into the vault according to policy and persists the result
// once. Entries are expected to have passed the backup codec validation; ids within
// entries must be unique.
func (s *Store) Import(ctx context.Context, entries []Entry, policy ImportPolicy) (ImportResult, error) {
	if policy == "" {
		policy = ImportReplace
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			return ImportResult{}, NewFormat("duplicate id %q in imported entries", e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := ImportResult{Policy: policy}

	var next []Entry

	switch policy {
	case ImportReplace:
		next = make([]Entry, len(entries))
		copy(next, entries)
		result.Added = len(entries)
		result.Removed = len(s.entries)

	case ImportKeep, ImportOverwrite, ImportReject:
		next = make([]Entry, len(s.entries), len(s.entries)+len(entries))
		copy(next, s.entries)

		var clashes []string
		for _, e := range entries {
			i, exists := s.index[e.ID]
			switch {
			case !exists:
				next = append(next, e)
				result.Added++
			case policy == ImportOverwrite:
				next[i] = e
				result.Replaced++
			case policy == ImportKeep:
				result.Skipped++
			default:
				clashes = append(clashes, e.ID)
			}
		}

		if len(clashes) > 0 {
			return ImportResult{}, NewConflict("%d imported entries clash with existing ids: %s",
				len(clashes), strings.Join(clashes, ", "))
		}

	default:
		return ImportResult{}, NewValidation("unknown import policy %q", policy)
	}

	if err := s.commit(ctx, next); err != nil {
		return ImportResult{}, err
	}

	for _, e := range entries {
		s.issued[e.ID] = struct{}{}
	}

	result.Total = len(next)

	s.logger.Info("entries imported",
		zap.String("policy", string(policy)),
		zap.Int("added", result.Added),
		zap.Int("replaced", result.Replaced),
		zap.Int("skipped", result.Skipped),
		zap.Int("total", result.Total),
	)

	return result, nil
}

// String renders the result for CLI output.
func (r ImportResult) String() string {
	return fmt.Sprintf("%d added, %d replaced, %d skipped, %d removed (%d total, policy %s)",
		r.Added, r.Replaced, r.Skipped, r.Removed, r.Total, r.Policy)
}
