package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/backup"
	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/health"
	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/output"
	"github.com/koyif/securevault/internal/persistence"
	"github.com/koyif/securevault/internal/persistence/backend"
	"github.com/koyif/securevault/internal/session"
	"github.com/koyif/securevault/internal/tip"
	"github.com/koyif/securevault/internal/vault"
)

func init() {
	color.NoColor = true
}

type testApp struct {
	t   *testing.T
	cfg *config.Config
	env *Env
	mem *persistence.Memory
}

// setupApp wires the commands to an in-memory backend shared across runs.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Storage.Driver = backend.DriverMemory
	cfg.Unlock.AttemptsPerMinute = 600
	cfg.Unlock.Burst = 100

	mem := persistence.NewMemory()
	app := &testApp{t: t, cfg: cfg, mem: mem}

	app.env = NewEnv(func() *config.Config { return app.cfg }, zap.NewNop())
	app.env.openPort = func(context.Context, backend.Config, *zap.Logger) (persistence.Port, error) {
		return mem, nil
	}

	return app
}

// reopen drops the cached session so the next command unlocks again.
func (a *testApp) reopen() {
	a.env.mu.Lock()
	a.env.sess = nil
	a.env.mu.Unlock()
}

func (a *testApp) run(args ...string) (string, error) {
	a.t.Helper()

	getCfg := func() *config.Config { return a.cfg }
	tipper := tip.NewResilient(tip.NewStatic("use a password manager"), 0, nil)

	root := &cobra.Command{Use: "vault", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(NewEntryCommands(getCfg, a.env.Session))
	root.AddCommand(NewGenerateCommand(getCfg))
	root.AddCommand(NewBackupCommands(getCfg, a.env.Session))
	root.AddCommand(NewPINCommands(getCfg, a.env.Gate, a.env.Session))
	root.AddCommand(NewStatusCommand(getCfg, a.env.Session))
	root.AddCommand(NewDoctorCommand(getCfg, a.env.Backend, "1.2.3"))
	root.AddCommand(NewTipCommand(func() *tip.Resilient { return tipper }))
	root.AddCommand(NewVersionCommand(getCfg, "1.2.3", "abc123", "2024-01-01"))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (a *testApp) mustRun(args ...string) string {
	a.t.Helper()
	out, err := a.run(args...)
	require.NoError(a.t, err, out)
	return out
}

func (a *testApp) store() *vault.Store {
	a.t.Helper()
	sess, err := a.env.Session(context.Background())
	require.NoError(a.t, err)
	return sess.Store()
}

// stubPrompts replaces the interactive prompts for the duration of the test.
func stubPrompts(t *testing.T, pins []string, confirm bool) {
	t.Helper()

	origPIN, origConfirm := promptPIN, confirmAction
	t.Cleanup(func() {
		promptPIN, confirmAction = origPIN, origConfirm
	})

	promptPIN = func(string) (string, error) {
		require.NotEmpty(t, pins, "unexpected PIN prompt")
		pin := pins[0]
		pins = pins[1:]
		return pin, nil
	}
	confirmAction = func(_, _ string, skip bool) (bool, error) {
		return skip || confirm, nil
	}
}

func TestEntryAdd_Flags(t *testing.T) {
	app := setupApp(t)

	out := app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "s3cret", "--usecase", "gaming", "--remark", "steam")
	assert.Contains(t, out, "✓ Entry 'alice' added to website")

	entries := app.store().List()
	require.Len(t, entries, 1)
	assert.Equal(t, vault.CategoryWebsite, entries[0].Category)
	assert.Equal(t, vault.UsecaseGaming, entries[0].Usecase)
	assert.Equal(t, "s3cret", entries[0].Password.Value)
	assert.Contains(t, out, entries[0].ID)
	assert.NotContains(t, out, "s3cret")
}

func TestEntryAdd_Generate(t *testing.T) {
	app := setupApp(t)
	app.cfg.Generator.Length = 20

	out := app.mustRun("entry", "add", "-c", "email", "-u", "bob@mail.test", "-g")

	entries := app.store().List()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Password.Value, 20)
	assert.Contains(t, out, entries[0].Password.Value, "generated password is shown once")
}

func TestEntryAdd_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown category", []string{"-c", "bank", "-u", "alice", "-p", "x"}},
		{"missing category", []string{"-u", "alice", "-p", "x"}},
		{"missing password", []string{"-c", "website", "-u", "alice"}},
		{"unknown usecase", []string{"-c", "website", "-u", "alice", "-p", "x", "--usecase", "work"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(t)

			_, err := app.run(append([]string{"entry", "add"}, tt.args...)...)
			require.Error(t, err)
			assert.ErrorIs(t, err, vault.ErrValidation)
			assert.Equal(t, 0, app.store().Len())
		})
	}
}

func TestEntryGet(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "s3cret")
	id := app.store().List()[0].ID

	out := app.mustRun("entry", "get", id)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, output.Mask)
	assert.NotContains(t, out, "s3cret")

	out = app.mustRun("entry", "get", id, "--reveal")
	assert.Contains(t, out, "s3cret")

	_, err := app.run("entry", "get", "missing")
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestEntryList_Filters(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "1", "--remark", "GitHub")
	app.mustRun("entry", "add", "-c", "website", "-u", "bob", "-p", "2", "--usecase", "Gaming")
	app.mustRun("entry", "add", "-c", "email", "-u", "carol@mail.test", "-p", "3", "--usecase", "Private")

	list := func(args ...string) []output.EntryView {
		t.Helper()
		app.cfg.Format = "json"
		defer func() { app.cfg.Format = "text" }()

		out := app.mustRun(append([]string{"entry", "list"}, args...)...)
		var views []output.EntryView
		require.NoError(t, json.Unmarshal([]byte(out), &views))
		return views
	}

	assert.Len(t, list(), 3)
	assert.Len(t, list("--category", "website"), 2)
	assert.Len(t, list("--category", "website", "--usecase", "all"), 2)

	gaming := list("--category", "website", "--usecase", "gaming")
	require.Len(t, gaming, 1)
	assert.Equal(t, "bob", gaming[0].Username)

	search := list("--search", "github")
	require.Len(t, search, 1)
	assert.Equal(t, "alice", search[0].Username)

	assert.Empty(t, list("--category", "username"))

	out := app.mustRun("entry", "list")
	assert.Contains(t, out, "Website (2)")
	assert.Contains(t, out, "Email (1)")

	_, err := app.run("entry", "list", "--usecase", "work")
	assert.ErrorIs(t, err, vault.ErrValidation)
}

func TestEntryUpdate_Flags(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "old", "--remark", "note")
	original := app.store().List()[0]

	out := app.mustRun("entry", "update", original.ID, "-p", "new", "--remark", "")
	assert.Contains(t, out, "✓ Entry 'alice' updated")

	updated, err := app.store().Get(original.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Password.Value)
	assert.Empty(t, updated.Remark)
	assert.Equal(t, original.Username, updated.Username)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)
	assert.Equal(t, original.Category, updated.Category)

	_, err = app.run("entry", "update", original.ID, "-u", "")
	assert.ErrorIs(t, err, vault.ErrValidation)

	_, err = app.run("entry", "update", "missing", "-p", "x")
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestEntryDelete(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "1")
	id := app.store().List()[0].ID

	stubPrompts(t, nil, false)
	out := app.mustRun("entry", "delete", id)
	assert.Contains(t, out, "Deletion cancelled")
	assert.Equal(t, 1, app.store().Len())

	out = app.mustRun("entry", "delete", id, "--yes")
	assert.Contains(t, out, "✓ Entry 'alice' deleted")
	assert.Equal(t, 0, app.store().Len())

	_, err := app.run("entry", "delete", id, "--yes")
	assert.ErrorIs(t, err, vault.ErrNotFound)
}

func TestGenerate(t *testing.T) {
	app := setupApp(t)
	app.cfg.Format = "json"

	out := app.mustRun("generate", "--length", "24", "--symbols=false")

	var view output.GeneratedView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Len(t, view.Password, 24)
	assert.Equal(t, 24, view.Length)
	assert.NotContains(t, view.Password, "!")
	assert.NotEmpty(t, view.Strength)

	_, err := app.run("generate", "--length", "0")
	assert.Error(t, err)

	_, err = app.run("generate", "--count", "0")
	assert.Error(t, err)
}

func TestBackup_ExportImport(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "1")
	app.mustRun("entry", "add", "-c", "email", "-u", "bob@mail.test", "-p", "2")
	exported := app.store().List()

	path := filepath.Join(t.TempDir(), "backup.json")
	out := app.mustRun("backup", "export", "-o", path)
	assert.Contains(t, out, "✓ Exported 2 entries")

	entries, err := backup.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, exported, entries)

	fresh := setupApp(t)
	fresh.mustRun("entry", "add", "-c", "username", "-u", "carol", "-p", "3")

	out = fresh.mustRun("backup", "import", path, "--policy", "keep")
	assert.Contains(t, out, "2 added")
	assert.Equal(t, 3, fresh.store().Len())

	out = fresh.mustRun("backup", "import", path, "--yes")
	assert.Contains(t, out, "policy replace")
	assert.Equal(t, exported, fresh.store().List())
}

func TestBackup_ExportStdout(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "1")

	out := app.mustRun("backup", "export", "-o", "-")

	entries, err := backup.Import([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, app.store().List(), entries)
}

func TestBackup_ImportErrors(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "1")

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not":"an array"}`), 0o600))

	_, err := app.run("backup", "import", bad, "--yes")
	assert.ErrorIs(t, err, vault.ErrFormat)
	assert.Equal(t, 1, app.store().Len())

	same := filepath.Join(dir, "same.json")
	app.mustRun("backup", "export", "-o", same)

	_, err = app.run("backup", "import", same, "--policy", "reject")
	assert.ErrorIs(t, err, vault.ErrConflict)

	_, err = app.run("backup", "import", same, "--policy", "merge")
	assert.ErrorIs(t, err, vault.ErrValidation)
}

func TestBackup_ImportReplaceCancelled(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "1")

	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	stubPrompts(t, nil, false)
	out := app.mustRun("backup", "import", path)
	assert.Contains(t, out, "Import cancelled")
	assert.Equal(t, 1, app.store().Len())
}

func TestPIN_SetUnlockChange(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "s3cret")

	out := app.mustRun("pin", "status")
	assert.Contains(t, out, "not set")

	stubPrompts(t, []string{"4821", "4821"}, true)
	out = app.mustRun("pin", "set")
	assert.Contains(t, out, "✓ PIN set")

	raw, err := app.mem.Load(context.Background(), persistence.KeyEntries)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")

	out = app.mustRun("pin", "status")
	assert.Contains(t, out, "PIN: set")

	_, err = app.run("pin", "set")
	assert.ErrorIs(t, err, lock.ErrPINAlreadySet)

	// A fresh process without a PIN cannot open the vault.
	app.reopen()
	stubPrompts(t, []string{"0000"}, true)
	_, err = app.run("entry", "list")
	assert.ErrorIs(t, err, lock.ErrIncorrectPIN)

	app.reopen()
	app.cfg.PIN = "4821"
	out = app.mustRun("entry", "list", "--reveal")
	assert.Contains(t, out, "s3cret")

	stubPrompts(t, []string{"9153", "9153"}, true)
	out = app.mustRun("pin", "change")
	assert.Contains(t, out, "✓ PIN changed")

	app.reopen()
	_, err = app.run("entry", "list")
	assert.ErrorIs(t, err, lock.ErrIncorrectPIN)

	app.reopen()
	app.cfg.PIN = "9153"
	out = app.mustRun("entry", "list", "--reveal")
	assert.Contains(t, out, "s3cret")
}

func TestPIN_SetRejectsShortPIN(t *testing.T) {
	app := setupApp(t)

	stubPrompts(t, []string{"12"}, true)
	_, err := app.run("pin", "set")
	assert.ErrorIs(t, err, lock.ErrPINTooShort)

	stubPrompts(t, []string{"1234", "4321"}, true)
	_, err = app.run("pin", "set")
	assert.ErrorIs(t, err, lock.ErrPINMismatch)

	out := app.mustRun("pin", "status")
	assert.Contains(t, out, "not set")
}

func TestPIN_ChangeWithoutPIN(t *testing.T) {
	app := setupApp(t)

	_, err := app.run("pin", "change")
	assert.ErrorIs(t, err, lock.ErrPINNotSet)
}

func TestSession_LockedWithoutTerminalPIN(t *testing.T) {
	app := setupApp(t)
	app.cfg.PIN = "4821"
	stubPrompts(t, []string{"4821", "4821"}, true)
	app.mustRun("pin", "set")

	app.reopen()
	app.cfg.PIN = ""
	stubPrompts(t, []string{""}, true)

	_, err := app.run("status")
	assert.ErrorIs(t, err, session.ErrLocked)
}

func TestStatus(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "1")
	app.mustRun("entry", "add", "-c", "email", "-u", "bob@mail.test", "-p", "2")

	app.cfg.Format = "yaml"
	out := app.mustRun("status")
	assert.Contains(t, out, "website: 1")
	assert.Contains(t, out, "email: 1")
	assert.Contains(t, out, "total: 2")
	assert.Contains(t, out, "pin_set: false")
}

func TestDoctor(t *testing.T) {
	app := setupApp(t)

	out := app.mustRun("doctor")
	assert.Contains(t, out, "Driver: memory")
	assert.Contains(t, out, "! pin")
	assert.Contains(t, out, "no entries stored yet")
	assert.Contains(t, out, "Overall: degraded")

	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "s3cret")
	stubPrompts(t, []string{"4821", "4821"}, true)
	app.mustRun("pin", "set")

	app.cfg.Format = "json"
	out = app.mustRun("doctor")
	var report health.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, health.StatusHealthy, report.Status)
	assert.Equal(t, "encrypted", report.Checks["storage"].Details["format"])
	assert.Equal(t, "1.2.3", report.Version)
}

func TestDoctor_Unhealthy(t *testing.T) {
	app := setupApp(t)
	require.NoError(t, app.mem.Save(context.Background(), persistence.KeyEntries, []byte(`"garbage"`)))

	out, err := app.run("doctor")
	require.Error(t, err)
	assert.Contains(t, out, "✗ storage")
}

func TestTipAndVersion(t *testing.T) {
	app := setupApp(t)

	out := app.mustRun("tip")
	assert.Equal(t, "use a password manager\n", out)

	out = app.mustRun("version")
	assert.Contains(t, out, "Version:    1.2.3")

	app.cfg.Format = "json"
	out = app.mustRun("version")
	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "abc123", info.Commit)
}

func TestEnv_Close(t *testing.T) {
	app := setupApp(t)
	app.mustRun("entry", "add", "-c", "website", "-u", "alice", "-p", "1")

	require.NoError(t, app.env.Close())

	_, err := app.mem.Load(context.Background(), persistence.KeyEntries)
	assert.ErrorIs(t, err, persistence.ErrClosed)
}

func TestDescribe(t *testing.T) {
	assert.Nil(t, describe(nil))

	err := describe(vault.NewNotFound("abc"))
	assert.ErrorIs(t, err, vault.ErrNotFound)
	assert.Contains(t, err.Error(), "vault entry list")

	err = describe(session.ErrLocked)
	assert.ErrorIs(t, err, session.ErrLocked)
	assert.Contains(t, err.Error(), "VAULT_PIN")

	err = describe(vault.NewPersistence("failed to load entries", persistence.ErrUnsealed))
	assert.ErrorIs(t, err, persistence.ErrUnsealed)
	assert.Contains(t, err.Error(), "vault backup import")
}
