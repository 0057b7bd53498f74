package fairdeck

import (
	"context"
	"os"
	"path"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairdeck/fairdeck/ceremony/boltdb"
	"github.com/fairdeck/fairdeck/key"
	"github.com/fairdeck/fairdeck/test"
)

func TestKeyGen(t *testing.T) {
	tmp := t.TempDir()
	args := []string{"fairdeck", "generate-keypair", "--folder", tmp}
	require.NoError(t, CLI().Run(args))

	store, err := key.NewFileStore(tmp)
	require.NoError(t, err)
	material, err := store.LoadMaterial()
	require.NoError(t, err)
	require.Len(t, material.Master, key.MasterKeyLength)

	// a second run must refuse to overwrite the existing material
	require.NoError(t, CLI().Run(args))
	again, err := store.LoadMaterial()
	require.NoError(t, err)
	require.True(t, material.Equal(again))
}

func writeTranscriptFile(t *testing.T, gameID string) string {
	t.Helper()
	tr := test.NewTranscript(t, gameID)
	buf, err := tr.Marshal()
	require.NoError(t, err)
	file := path.Join(t.TempDir(), "transcript.json")
	require.NoError(t, os.WriteFile(file, buf, 0o600))
	return file
}

func TestAuditValidTranscript(t *testing.T) {
	file := writeTranscriptFile(t, "game-cli-audit")
	logFile := path.Join(t.TempDir(), "audit-log.json")

	args := []string{"fairdeck", "audit", "--export-log", logFile, "--metrics", "127.0.0.1:0", file}
	require.NoError(t, CLI().Run(args))

	exported, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.NotEmpty(t, exported)
}

func TestAuditTamperedTranscript(t *testing.T) {
	tr := test.NewTranscript(t, "game-cli-tamper")
	ms, err := strconv.ParseInt(tr.Timestamp, 10, 64)
	require.NoError(t, err)
	tr.Timestamp = strconv.FormatInt(ms+1, 10)

	buf, err := tr.Marshal()
	require.NoError(t, err)
	file := path.Join(t.TempDir(), "transcript.json")
	require.NoError(t, os.WriteFile(file, buf, 0o600))

	err = CLI().Run([]string{"fairdeck", "audit", file})
	require.Error(t, err)
	code, ok := ExitCode(err)
	require.True(t, ok)
	require.Equal(t, 2, code)
}

func TestAuditBadInput(t *testing.T) {
	require.Error(t, CLI().Run([]string{"fairdeck", "audit"}))
	require.Error(t, CLI().Run([]string{"fairdeck", "audit", path.Join(t.TempDir(), "missing.json")}))

	file := path.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(file, []byte("not a transcript"), 0o600))
	require.Error(t, CLI().Run([]string{"fairdeck", "audit", file}))
}

func newArchiveFolder(t *testing.T, gameIDs ...string) string {
	t.Helper()
	folder := t.TempDir()
	ctx := context.Background()
	store, err := boltdb.NewBoltStore(ctx, test.Logger(t), folder, nil)
	require.NoError(t, err)
	for _, gameID := range gameIDs {
		require.NoError(t, store.Put(ctx, test.NewTranscript(t, gameID)))
	}
	require.NoError(t, store.Close(ctx))
	return folder
}

func TestInspectShowAndList(t *testing.T) {
	folder := newArchiveFolder(t, "game-a", "game-b")

	require.NoError(t, CLI().Run([]string{"fairdeck", "inspect", "list", "--db", folder}))
	require.NoError(t, CLI().Run([]string{"fairdeck", "inspect", "show", "--db", folder, "game-a"}))
	require.NoError(t, CLI().Run([]string{"fairdeck", "inspect", "show", "--db", folder, "--json", "game-b"}))
	require.NoError(t, CLI().Run([]string{"fairdeck", "inspect", "show", "--db", folder, "--hash", "game-b"}))

	err := CLI().Run([]string{"fairdeck", "inspect", "show", "--db", folder, "game-unknown"})
	require.Error(t, err)
}

func TestBackupArchive(t *testing.T) {
	folder := newArchiveFolder(t, "game-a", "game-b")

	backupFolder := t.TempDir()
	backupFile := path.Join(backupFolder, boltdb.BoltFileName)
	require.NoError(t, CLI().Run([]string{"fairdeck", "util", "backup", "--db", folder, backupFile}))

	// the copy is a fully usable archive
	ctx := context.Background()
	store, err := boltdb.NewBoltStore(ctx, test.Logger(t), backupFolder, nil)
	require.NoError(t, err)
	defer store.Close(ctx)

	count, err := store.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	tr, err := store.Get(ctx, "game-a")
	require.NoError(t, err)
	require.True(t, tr.Verify())
}
