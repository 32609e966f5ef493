package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/httprunner/InstallAgent/internal/changeset"
	"github.com/httprunner/InstallAgent/internal/config"
	"github.com/httprunner/InstallAgent/internal/installer"
	"github.com/httprunner/InstallAgent/internal/storage"
)

func TestPlanIncremental(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(filepath.Join(t.TempDir(), "state.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	first := map[string]string{"b1.apk": "d1", "maindex.apk": "m1"}
	changes, err := planIncremental(ctx, store, "emu-1", "debug", first)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, changeset.New, c.Status)
	}

	require.NoError(t, store.SaveSnapshot(ctx, "emu-1", "debug", first))
	second := map[string]string{"b1.apk": "d1", "maindex.apk": "m2", "b2.apk": "d2"}
	changes, err = planIncremental(ctx, store, "emu-1", "debug", second)
	require.NoError(t, err)
	batch := changeset.Reducer{}.Reduce(changes)
	assert.Equal(t, changeset.Batch{"b2.apk", "maindex.apk"}, batch)
}

func TestInstallOptionsValidate(t *testing.T) {
	opts := installOptions{Package: "com.example", Variant: "debug", Bundles: []string{"b1.apk"}}
	assert.NoError(t, opts.validate())

	missing := opts
	missing.Package = ""
	assert.Error(t, missing.validate())
	missing = opts
	missing.Bundles = nil
	assert.Error(t, missing.validate())

	both := opts
	both.Full = true
	both.ChangesFile = "changes.yaml"
	assert.Error(t, both.validate())
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	level, err = parseLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	_, err = parseLogLevel("loud")
	assert.Error(t, err)
}

func TestNewRegistryKnowsBothKinds(t *testing.T) {
	cfg := config.Load()
	registry := newRegistry(cfg, newShellClient(cfg))
	for _, kind := range []installer.Kind{installer.KindMultiAPK, installer.KindPatch} {
		s, err := registry.Lookup(kind)
		require.NoError(t, err)
		assert.NotNil(t, s)
	}
	_, err := registry.Lookup("sideload")
	assert.Error(t, err)
}

func TestWriteHistory(t *testing.T) {
	started := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	writeHistory(&buf, []storage.InstallRun{
		{State: "failed", Mode: "full", Variant: "debug", Package: "com.example", StartedAt: started, ErrorMessage: "adb: no\nspace"},
		{State: "success", Mode: "incremental", Variant: "debug", Package: "com.example", StartedAt: started, Artifacts: []string{"a.apk", "maindex.apk"}},
	})
	assert.Equal(t,
		"2026-10-01T08:00:00Z\tfailed\tfull\tdebug\tcom.example\t0 artifacts\tadb: no space\n"+
			"2026-10-01T08:00:00Z\tsuccess\tincremental\tdebug\tcom.example\t2 artifacts\n",
		buf.String())
}
