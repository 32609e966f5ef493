package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/httprunner/InstallAgent/internal/changeset"
	"github.com/httprunner/InstallAgent/internal/installer"
	"github.com/httprunner/InstallAgent/internal/shell/shelltest"
	"github.com/httprunner/InstallAgent/internal/version"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "state.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotRoundTripAndDiff(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	empty, err := store.LoadSnapshot(ctx, "emulator-5554", "debug")
	require.NoError(t, err)
	assert.Empty(t, empty)

	first := map[string]string{"/o/a.apk": "aa", "/o/maindex.apk": "mm"}
	require.NoError(t, store.SaveSnapshot(ctx, "emulator-5554", "debug", first))

	// other device and variant stay independent
	require.NoError(t, store.SaveSnapshot(ctx, "emulator-5556", "debug", map[string]string{"/o/x.apk": "xx"}))
	require.NoError(t, store.SaveSnapshot(ctx, "emulator-5554", "release", map[string]string{"/o/r.apk": "rr"}))

	loaded, err := store.LoadSnapshot(ctx, "emulator-5554", "debug")
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	current := map[string]string{"/o/a.apk": "aa2", "/o/maindex.apk": "mm", "/o/b.apk": "bb"}
	changes := changeset.Diff(loaded, current)
	assert.Equal(t, changeset.Batch{"/o/a.apk", "/o/b.apk"}, changeset.Reducer{}.Reduce(changes))

	require.NoError(t, store.SaveSnapshot(ctx, "emulator-5554", "debug", current))
	loaded, err = store.LoadSnapshot(ctx, "emulator-5554", "debug")
	require.NoError(t, err)
	assert.Equal(t, current, loaded)

	assert.Error(t, store.SaveSnapshot(ctx, " ", "debug", current))
}

func TestRecordInstall(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	dev := shelltest.NewDevice("emulator-5554")
	started := time.UnixMilli(1_700_000_000_000)

	ok := installer.Outcome{
		Mode:      installer.ModeIncremental,
		State:     installer.StateSuccess,
		Request:   installer.Request{Project: "demo", Variant: "debug", Package: "com.taobao.demo", DeclaredVersion: "1.2.4", Device: dev},
		Artifacts: changeset.Batch{"/o/a.apk", "/o/maindex.apk"},
		Mismatch:  &version.Mismatch{Declared: "1.2.4", Installed: "1.2.3", Serial: "emulator-5554"},
		StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond),
	}
	failed := installer.Outcome{
		Mode:    installer.ModeFull,
		State:   installer.StateReportedFailure,
		Request: installer.Request{Package: "com.taobao.demo", Device: dev},
		Err:     errors.New("INSTALL_FAILED_INSUFFICIENT_STORAGE"),
	}
	require.NoError(t, store.RecordInstall(ctx, ok))
	require.NoError(t, store.RecordInstall(ctx, failed))

	runs, err := store.RecentInstalls(ctx, "emulator-5554", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "failed", runs[0].State)
	assert.Equal(t, "full", runs[0].Mode)
	assert.Equal(t, "INSTALL_FAILED_INSUFFICIENT_STORAGE", runs[0].ErrorMessage)
	assert.Empty(t, runs[0].Artifacts)

	assert.Equal(t, "success", runs[1].State)
	assert.Equal(t, []string{"/o/a.apk", "/o/maindex.apk"}, runs[1].Artifacts)
	assert.Equal(t, "1.2.3", runs[1].InstalledVersion)
	assert.Equal(t, "1.2.4", runs[1].DeclaredVersion)
	assert.Equal(t, started, runs[1].StartedAt)

	other, err := store.RecentInstalls(ctx, "someone-else", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStoreImplementsRecorder(t *testing.T) {
	var _ installer.Recorder = (*Store)(nil)
}

func TestResolveDatabasePath(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "a", "b.sqlite")
	path, err := ResolveDatabasePath(custom)
	require.NoError(t, err)
	assert.Equal(t, custom, path)
	assert.DirExists(t, filepath.Dir(custom))
}
