package output

import (
	"fmt"

	"github.com/koyif/securevault/internal/vault"
)

// FormatEntry formats one entry for display
func FormatEntry(e vault.Entry, format string, reveal bool) (string, error) {
	formatter, err := NewFormatter(format)
	if err != nil {
		return "", err
	}

	out, err := formatter.Format(NewEntryView(e, reveal))
	if err != nil {
		return "", fmt.Errorf("failed to format entry: %w", err)
	}

	return out, nil
}

// FormatEntryList formats a list of entries for display
func FormatEntryList(entries []vault.Entry, format string, reveal bool) (string, error) {
	formatter, err := NewFormatter(format)
	if err != nil {
		return "", err
	}

	items := make([]EntryView, len(entries))
	for i, e := range entries {
		items[i] = NewEntryView(e, reveal)
	}

	out, err := formatter.FormatList(items)
	if err != nil {
		return "", fmt.Errorf("failed to format entry list: %w", err)
	}

	return out, nil
}

// FormatValue formats any other value (generated password, stats, import result).
func FormatValue(v any, format string) (string, error) {
	formatter, err := NewFormatter(format)
	if err != nil {
		return "", err
	}
	return formatter.Format(v)
}
