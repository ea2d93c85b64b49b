package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyif/securevault/internal/vault"
)

func sampleEntries() []vault.Entry {
	return []vault.Entry{
		{
			ID:        "a1",
			Category:  vault.CategoryWebsite,
			Username:  "alice@example.com",
			Password:  vault.Password{Value: "s3cret!"},
			Usecase:   vault.UsecaseDefault,
			Remark:    "github",
			CreatedAt: "2024-05-01T10:00:00.000Z",
		},
		{
			ID:        "b2",
			Category:  vault.CategoryEmail,
			Username:  "bob",
			Password:  vault.Password{Value: "hunter2", IsEncrypted: true},
			Usecase:   vault.UsecaseGaming,
			CreatedAt: "2024-05-02T11:30:00.000Z",
		},
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	entries := sampleEntries()

	data, err := Export(entries)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {"), "export should be indented")

	got, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestExport_Empty(t *testing.T) {
	for _, in := range [][]vault.Entry{nil, {}} {
		data, err := Export(in)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	}
}

func TestImport_EmptyArray(t *testing.T) {
	got, err := Import([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImport_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"not json", `not json`, "JSON array"},
		{"object", `{}`, "JSON array"},
		{"null", `null`, "got null"},
		{"string element", `["x"]`, "not a JSON object"},
		{"missing id", `[{"username":"u","password":{"value":"p"},"category":"email"}]`, `missing field "id"`},
		{"missing username", `[{"id":"1","password":{"value":"p"},"category":"email"}]`, `missing field "username"`},
		{"missing password", `[{"id":"1","username":"u","category":"email"}]`, `missing field "password"`},
		{"null username", `[{"id":"1","username":null,"password":{"value":"p"},"category":"email"}]`, `missing field "username"`},
		{"null password", `[{"id":"1","username":"u","password":null,"category":"email"}]`, `missing field "password"`},
		{"blank username", `[{"id":"1","username":"  ","password":{"value":"p"},"category":"email"}]`, "empty username"},
		{"empty password value", `[{"id":"1","username":"u","password":{"value":""},"category":"email"}]`, "empty password"},
		{"password without value", `[{"id":"1","username":"u","password":{},"category":"email"}]`, "empty password"},
		{"password wrong shape", `[{"id":"1","username":"u","password":"p","category":"email"}]`, "unexpected shape"},
		{"empty id", `[{"id":"","username":"u","password":{"value":"p"},"category":"email"}]`, "empty id"},
		{"missing category", `[{"id":"1","username":"u","password":{"value":"p"}}]`, "unknown category"},
		{"unknown category", `[{"id":"1","username":"u","password":{"value":"p"},"category":"bank"}]`, "unknown category"},
		{"unknown usecase", `[{"id":"1","username":"u","password":{"value":"p"},"category":"email","usecase":"Work"}]`, "unknown usecase"},
		{
			"duplicate id",
			`[{"id":"1","username":"u","password":{"value":"p"},"category":"email"},
			  {"id":"1","username":"v","password":{"value":"q"},"category":"website"}]`,
			"duplicate id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Import([]byte(tt.data))

			require.Error(t, err)
			assert.ErrorIs(t, err, vault.ErrFormat)
			assert.Contains(t, err.Error(), tt.want)
			assert.Nil(t, got)
		})
	}
}

func TestImport_DefaultsUsecase(t *testing.T) {
	got, err := Import([]byte(`[{"id":"1","username":"u","password":{"value":"p"},"category":"username"}]`))

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, vault.UsecaseDefault, got[0].Usecase)
}

func TestFileName(t *testing.T) {
	ts := time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "securevault-backup-2025-03-09.json", FileName(ts))
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(time.Now()))
	entries := sampleEntries()

	require.NoError(t, WriteFile(path, entries))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	require.NoError(t, WriteFile(path, entries[:1]))
	got, err = ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, vault.ErrFormat)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"entries":[]}`), 0600))

	_, err = ReadFile(bad)
	assert.ErrorIs(t, err, vault.ErrFormat)
}
