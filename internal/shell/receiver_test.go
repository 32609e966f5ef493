package shell_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/httprunner/InstallAgent/internal/shell"
)

func TestMatchReceiverFirstMatchWins(t *testing.T) {
	r := shell.NewMatchReceiver(regexp.MustCompile(`versionName=([^']*)$`))
	assert.False(t, r.Done())

	r.AddLines([]string{"foo=1", "versionName=1.2.3", "versionName=9.9.9"})
	assert.True(t, r.Done())
	r.AddLines([]string{"versionName=0.0.1"})

	value, ok := r.Result()
	require.True(t, ok)
	assert.Equal(t, "1.2.3", value)
}

func TestMatchReceiverRequiresFullLine(t *testing.T) {
	r := shell.NewMatchReceiver(regexp.MustCompile(`versionName=([^']*)$`))
	r.AddLines([]string{"  pkg versionName=1.0"})
	assert.False(t, r.Done())

	r.AddLines([]string{"versionName=2.0\r"})
	value, ok := r.Result()
	require.True(t, ok)
	assert.Equal(t, "2.0", value)
}

func TestMatchReceiverWithoutGroup(t *testing.T) {
	r := shell.NewMatchReceiver(regexp.MustCompile(`ready`))
	r.AddLines([]string{"booting", "ready"})
	value, ok := r.Result()
	require.True(t, ok)
	assert.Equal(t, "ready", value)
}

func TestCollectingReceiverNeverDone(t *testing.T) {
	r := &shell.CollectingReceiver{}
	r.AddLines([]string{"a", "b"})
	r.AddLines([]string{"c"})
	assert.False(t, r.Done())
	assert.Equal(t, "a\nb\nc", r.Output())
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, shell.SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, shell.SplitLines("a\r\nb\r\n"))
	assert.Equal(t, []string{"a", "", "b"}, shell.SplitLines("a\n\nb"))
}

func TestFeedHonorsDone(t *testing.T) {
	r := shell.NewMatchReceiver(regexp.MustCompile(`hit`))
	collected := &countingReceiver{inner: r}
	lines := []string{"x", "x", "hit", "x", "x", "x"}

	require.NoError(t, shell.Feed(context.Background(), lines, 2, collected))
	assert.Equal(t, 2, collected.batches)
	assert.Equal(t, 4, collected.lines)
}

func TestFeedStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := shell.Feed(ctx, []string{"a"}, 1, &shell.CollectingReceiver{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLatch(t *testing.T) {
	l := shell.NewLatch()
	ok, err := l.Wait(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	l.Signal()
	l.Signal()
	ok, err = l.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "/sdcard/missing", shell.Quote("/sdcard/missing"))
	assert.Equal(t, "''", shell.Quote(""))
	assert.Equal(t, `'/sdcard/my file'`, shell.Quote("/sdcard/my file"))
	assert.Equal(t, `'it'\''s'`, shell.Quote("it's"))
}

type countingReceiver struct {
	inner   shell.Receiver
	batches int
	lines   int
}

func (c *countingReceiver) AddLines(lines []string) {
	c.batches++
	c.lines += len(lines)
	c.inner.AddLines(lines)
}

func (c *countingReceiver) Done() bool { return c.inner.Done() }
