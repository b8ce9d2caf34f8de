package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rg/danmakubot/internal/chunk"
)

func TestRunSplit(t *testing.T) {
	var out bytes.Buffer

	if err := runSplit(strings.NewReader("line1\nline2\nline3"), &out, 11, false); err != nil {
		t.Fatalf("runSplit() error: %v", err)
	}

	want := "--- chunk 1/2 (11) ---\nline1\nline2\n--- chunk 2/2 (5) ---\nline3\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRunSplit_Check(t *testing.T) {
	input := "short\n" + strings.Repeat("x", 20)

	var out bytes.Buffer
	if err := runSplit(strings.NewReader(input), &out, 10, false); err != nil {
		t.Errorf("without --check oversized lines are allowed: %v", err)
	}

	out.Reset()
	err := runSplit(strings.NewReader(input), &out, 10, true)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 chunks exceed limit 10") {
		t.Errorf("runSplit(--check) error = %v", err)
	}
	if !strings.Contains(out.String(), "(20)") {
		t.Errorf("chunks should still be printed before failing: %q", out.String())
	}
}

func TestRunSplit_InvalidLimit(t *testing.T) {
	err := runSplit(strings.NewReader("text"), &bytes.Buffer{}, 0, false)
	if !errors.Is(err, chunk.ErrInvalidLimit) {
		t.Errorf("error = %v, want ErrInvalidLimit", err)
	}
}

func TestSplitCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("aaaa\nbbbb"), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"split", "--limit", "5", path})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got := strings.Count(out.String(), "--- chunk"); got != 2 {
		t.Errorf("expected 2 chunks, got %d:\n%s", got, out.String())
	}
}

func TestSplitCmd_Stdin(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader("hello"))
	root.SetOut(&out)
	root.SetArgs([]string{"split"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out.String() != "--- chunk 1/1 (5) ---\nhello\n" {
		t.Errorf("output = %q", out.String())
	}
}
