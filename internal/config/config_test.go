package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/httprunner/InstallAgent/internal/changeset"
	"github.com/httprunner/InstallAgent/internal/shell"
)

func TestReaders(t *testing.T) {
	t.Setenv("IA_TEST_STR", "  value ")
	t.Setenv("IA_TEST_DUR", "250ms")
	t.Setenv("IA_TEST_SECS", "3")
	t.Setenv("IA_TEST_BAD", "soon")
	t.Setenv("IA_TEST_INT", "42")
	t.Setenv("IA_TEST_BOOL", "Yes")

	assert.Equal(t, "value", String("IA_TEST_STR", "x"))
	assert.Equal(t, "x", String("IA_TEST_UNSET", "x"))
	assert.Equal(t, 250*time.Millisecond, Duration("IA_TEST_DUR", time.Second))
	assert.Equal(t, 3*time.Second, Duration("IA_TEST_SECS", time.Second))
	assert.Equal(t, time.Second, Duration("IA_TEST_BAD", time.Second))
	assert.Equal(t, 42, Int("IA_TEST_INT", 1))
	assert.Equal(t, 1, Int("IA_TEST_STR", 1))
	assert.True(t, Bool("IA_TEST_BOOL", false))
	assert.True(t, Bool("IA_TEST_STR", true))
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvCommandTimeout, "")
	t.Setenv(EnvMainIndexName, "")
	t.Setenv(EnvLsTimeout, "2s")
	t.Setenv(EnvADBTransport, "gadb")

	cfg := Load()
	assert.Equal(t, shell.DefaultCommandTimeout, cfg.CommandTimeout)
	assert.Equal(t, changeset.DefaultMainIndexName, cfg.MainIndexName)
	assert.Equal(t, 2*time.Second, cfg.LsTimeout)
	assert.Equal(t, "gadb", cfg.Transport)
}
