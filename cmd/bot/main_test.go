package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/mcsmanager/mcsm_bot/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

// seedSnapshot writes a snapshot file with one shortcut and one purge record
// and returns a config file pointing at it.
func seedSnapshot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "bot.db")

	ctx := context.Background()
	st := store.NewSQLiteStore(store.Params{})
	st.SetFlushDebounce(time.Hour)
	require.NoError(t, st.Open(ctx))
	require.NoError(t, st.InsertShortcut(ctx, models.Shortcut{
		ID:                 "java",
		Description:        "Java versions",
		MessageTitle:       "Which Java?",
		MessageDescription: "Use Java 21.",
	}))
	require.NoError(t, st.InsertPurgeRecord(ctx, models.PurgeRecord{
		InvocationID: "inv-1",
		ModeratorID:  "mod-42",
		TargetUserID: "spammer",
		Days:         3,
		Deleted:      17,
		CreatedAt:    time.Now().Add(-time.Hour),
	}))
	require.NoError(t, st.FlushToDisk(ctx, dbPath))
	require.NoError(t, st.Close())

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  path: "+dbPath+"\n"), 0o644))
	return cfgPath
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "config.yaml")

	out := execute(t, "config", "init", path)
	assert.Contains(t, out, "wrote "+path)
	assert.FileExists(t, path)

	rootCmd.SetArgs([]string{"config", "init", path})
	assert.Error(t, rootCmd.Execute())
}

func TestVersion(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "mcsm-bot ")
}

func TestShortcutsExport(t *testing.T) {
	cfgPath := seedSnapshot(t)
	out := filepath.Join(t.TempDir(), "shortcuts.json")

	execute(t, "--config", cfgPath, "shortcuts", "export", out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": "java"`)
	assert.Contains(t, string(data), "Use Java 21.")
}

func TestPurges(t *testing.T) {
	cfgPath := seedSnapshot(t)

	out := execute(t, "--config", cfgPath, "purges", "--limit", "5")
	assert.Contains(t, out, "MODERATOR")
	assert.Contains(t, out, "mod-42")
	assert.Contains(t, out, "spammer")
	assert.Contains(t, out, "all")
	assert.Contains(t, out, "17")
}

func TestPurgesEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  path: "+filepath.Join(dir, "none.db")+"\n"), 0o644))

	assert.Contains(t, execute(t, "--config", cfgPath, "purges"), "no purges recorded")
}
