package shell

import (
	"context"
	"regexp"
	"strings"
	"sync"
)

// Receiver consumes the output of a shell command as batches of lines.
//
// Polling contract for Device implementations: after every batch passed to
// AddLines the transport must call Done. Once Done returns true the transport
// stops reading, releases the remote command and returns without delivering
// further batches. There is no other cancel signal.
type Receiver interface {
	AddLines(lines []string)
	Done() bool
}

// CollectingReceiver buffers every line it receives. It is never done.
type CollectingReceiver struct {
	mu    sync.Mutex
	lines []string
}

func (r *CollectingReceiver) AddLines(lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, lines...)
}

func (r *CollectingReceiver) Done() bool { return false }

// Output joins the received lines with newlines.
func (r *CollectingReceiver) Output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lines, "\n")
}

// MatchReceiver captures the first line fully matched by pattern and reports
// Done from then on. Lines after the first match are ignored.
type MatchReceiver struct {
	pattern *regexp.Regexp

	mu      sync.Mutex
	value   string
	matched bool
}

// NewMatchReceiver returns a receiver extracting capture group 1 of pattern,
// or the whole line when pattern has no groups.
func NewMatchReceiver(pattern *regexp.Regexp) *MatchReceiver {
	return &MatchReceiver{pattern: pattern}
}

func (r *MatchReceiver) AddLines(lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.matched || r.pattern == nil {
		return
	}
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		loc := r.pattern.FindStringSubmatchIndex(line)
		// substring hits do not count, the match must span the line
		if loc == nil || loc[0] != 0 || loc[1] != len(line) {
			continue
		}
		if len(loc) >= 4 && loc[2] >= 0 {
			r.value = line[loc[2]:loc[3]]
		} else {
			r.value = line
		}
		r.matched = true
		return
	}
}

func (r *MatchReceiver) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matched
}

// Result returns the captured value and whether a line matched.
func (r *MatchReceiver) Result() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value, r.matched
}

// signalingReceiver fires latch as soon as the wrapped receiver is done.
type signalingReceiver struct {
	Receiver
	latch *Latch
}

func (r *signalingReceiver) AddLines(lines []string) {
	r.Receiver.AddLines(lines)
	if r.Receiver.Done() {
		r.latch.Signal()
	}
}

// SplitLines splits raw command output into lines, dropping carriage returns
// and the empty element after a trailing newline.
func SplitLines(output string) []string {
	if output == "" {
		return nil
	}
	output = strings.ReplaceAll(output, "\r\n", "\n")
	lines := strings.Split(output, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Feed delivers lines to r in batches of batchSize, honoring the polling
// contract. It returns ctx.Err() when ctx ends between batches.
func Feed(ctx context.Context, lines []string, batchSize int, r Receiver) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	for start := 0; start < len(lines); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(lines))
		batch := make([]string, end-start)
		copy(batch, lines[start:end])
		r.AddLines(batch)
		if r.Done() {
			return nil
		}
	}
	return nil
}

var safeShellWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote returns s as a single device shell word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeShellWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
