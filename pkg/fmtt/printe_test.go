package fmtt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type leaseError struct {
	Slot int
	Op   string
	err  error
}

func (e *leaseError) Error() string { return fmt.Sprintf("%s slot %d: %v", e.Op, e.Slot, e.err) }
func (e *leaseError) Unwrap() error { return e.err }

func TestFprintErrChainNil(t *testing.T) {
	var buf bytes.Buffer
	FprintErrChain(&buf, nil)
	if got := buf.String(); got != "<nil>\n" {
		t.Fatalf("got %q, want %q", got, "<nil>\n")
	}
}

func TestFprintErrChainWalksEveryLayer(t *testing.T) {
	root := errors.New("connection refused")
	err := fmt.Errorf("acquire: %w", &leaseError{Slot: 3, Op: "blpop", err: root})

	var buf bytes.Buffer
	FprintErrChain(&buf, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "[0]") || !strings.Contains(lines[0], "acquire") {
		t.Errorf("first layer = %q", lines[0])
	}
	if !strings.Contains(lines[1], "leaseError") || !strings.Contains(lines[1], "slot 3") {
		t.Errorf("second layer = %q", lines[1])
	}
	if !strings.Contains(lines[2], "connection refused") {
		t.Errorf("third layer = %q", lines[2])
	}
}

func TestFdumpErrChainShowsStructFields(t *testing.T) {
	err := &leaseError{Slot: 7, Op: "rpush", err: errors.New("timeout")}

	var buf bytes.Buffer
	FdumpErrChain(&buf, err)

	out := buf.String()
	for _, want := range []string{"leaseError", "Slot (int): 7", "Op (string): rpush", "timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
