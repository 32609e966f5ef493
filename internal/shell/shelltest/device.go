// Package shelltest provides a scripted in-memory shell.Device for tests.
package shelltest

import (
	"context"
	"sync"
	"time"

	"github.com/httprunner/InstallAgent/internal/shell"
)

// Response scripts the outcome of one command.
type Response struct {
	Output string
	Err    error
	// Delay postpones the output; ctx ending first yields ctx.Err().
	Delay time.Duration
	// Hang blocks until ctx ends.
	Hang bool
}

// Device answers commands from a script. Unscripted commands produce no output.
type Device struct {
	SerialNo  string
	BatchSize int

	mu        sync.Mutex
	responses map[string]Response
	calls     []string
	batches   [][]string
}

func NewDevice(serial string) *Device {
	return &Device{SerialNo: serial, BatchSize: 1, responses: make(map[string]Response)}
}

// On scripts the response for command and returns d for chaining.
func (d *Device) On(command string, resp Response) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses[command] = resp
	return d
}

func (d *Device) Serial() string { return d.SerialNo }

func (d *Device) ExecuteShell(ctx context.Context, command string, r shell.Receiver) error {
	d.mu.Lock()
	d.calls = append(d.calls, command)
	resp := d.responses[command]
	batchSize := d.BatchSize
	d.mu.Unlock()

	if resp.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(resp.Delay):
		}
	}
	if resp.Err != nil {
		return resp.Err
	}
	return shell.Feed(ctx, shell.SplitLines(resp.Output), batchSize, recordingReceiver{d: d, r: r})
}

// Commands returns the commands executed so far.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// DeliveredLines returns every line handed to a receiver, in order.
func (d *Device) DeliveredLines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, b := range d.batches {
		out = append(out, b...)
	}
	return out
}

type recordingReceiver struct {
	d *Device
	r shell.Receiver
}

func (rr recordingReceiver) AddLines(lines []string) {
	rr.d.mu.Lock()
	rr.d.batches = append(rr.d.batches, append([]string(nil), lines...))
	rr.d.mu.Unlock()
	rr.r.AddLines(lines)
}

func (rr recordingReceiver) Done() bool { return rr.r.Done() }
