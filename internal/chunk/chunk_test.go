package chunk

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestSplit(t *testing.T) {
	fifteen := strings.Repeat("x", 15)

	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "short", 10, []string{"short"}},
		{"empty", "", 10, []string{""}},
		{"exact_limit", "0123456789", 10, []string{"0123456789"}},
		{"fast_path_keeps_newlines", "a\nb\nc", 10, []string{"a\nb\nc"}},
		{"three_lines_limit_10", "line1\nline2\nline3", 10, []string{"line1", "line2", "line3"}},
		{"three_lines_limit_11", "line1\nline2\nline3", 11, []string{"line1\nline2", "line3"}},
		{"oversized_single_line", fifteen, 10, []string{fifteen}},
		{"oversized_line_in_middle", "ab\n" + fifteen + "\ncd", 10, []string{"ab", fifteen, "cd"}},
		{"oversized_first_line", fifteen + "\nab\ncd", 10, []string{fifteen, "ab\ncd"}},
		{"greedy_packing", "aaa\nbbb\nccc\nddd", 7, []string{"aaa\nbbb", "ccc\nddd"}},
		{"blank_lines_kept", "aaaa\n\n\nbbbb", 6, []string{"aaaa\n\n", "bbbb"}},
		{"trailing_newline", "aaaaaa\nbbbbbb\n", 8, []string{"aaaaaa", "bbbbbb\n"}},
		{"leading_newline", "\naaaaaa\nbbbbbb", 8, []string{"\naaaaaa", "bbbbbb"}},
		{"runes_not_bytes", "任务一\n任务二\n任务三", 7, []string{"任务一\n任务二", "任务三"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSplit_Properties(t *testing.T) {
	inputs := []string{
		"",
		"one line without newline",
		"a\nbb\nccc\ndddd\neeeee\nffffff\nggggggg\nhhhhhhhh",
		strings.Repeat("status line\n", 40),
		"header\n\n" + strings.Repeat("y", 50) + "\n\nfooter\n",
		"\n\n\n\n\n\n\n\n\n\n\n\n",
		"📋 *任务列表*\n\n*1\\. 标题*\n    🆔 ID: `abc`\n    📊 进度: 50%\n",
	}
	limits := []int{1, 3, 10, 16, 64, DefaultLimit}

	for _, text := range inputs {
		for _, limit := range limits {
			chunks := Split(text, limit)

			if len(chunks) == 0 {
				t.Fatalf("Split(%q, %d) returned no chunks", text, limit)
			}

			if Len(text) <= limit {
				if len(chunks) != 1 || chunks[0] != text {
					t.Errorf("Split(%q, %d) = %q, want identity", text, limit, chunks)
				}
				continue
			}

			wantLines := strings.Split(text, "\n")
			if got := splitLines(chunks); !reflect.DeepEqual(got, wantLines) {
				t.Errorf("Split(%q, %d) lines = %q, want %q", text, limit, got, wantLines)
			}

			if joined := strings.Join(chunks, "\n"); joined != text {
				t.Errorf("Split(%q, %d) joined = %q, want original", text, limit, joined)
			}

			for i, c := range chunks {
				if Len(c) > limit && strings.Contains(c, "\n") {
					t.Errorf("chunk %d of Split(%q, %d) = %q exceeds limit with several lines", i, text, limit, c)
				}
			}
		}
	}
}

func TestSplit_NoEmptyChunksWithoutBlankLines(t *testing.T) {
	text := "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\neta\ntheta"
	for limit := 1; limit <= len(text); limit++ {
		for i, c := range Split(text, limit) {
			if c == "" {
				t.Errorf("Split(limit=%d) chunk %d is empty", limit, i)
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("task entry with some text\n", 500)
	want := Split(text, 100)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Split(text, 100); !reflect.DeepEqual(got, want) {
				t.Error("concurrent Split returned a different result")
			}
		}()
	}
	wg.Wait()
}

func TestValidateLimit(t *testing.T) {
	tests := []struct {
		limit   int
		wantErr bool
	}{
		{1, false},
		{DefaultLimit, false},
		{0, true},
		{-5, true},
	}

	for _, tt := range tests {
		err := ValidateLimit(tt.limit)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateLimit(%d) error = %v, wantErr %v", tt.limit, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("ValidateLimit(%d) error should wrap ErrInvalidLimit: %v", tt.limit, err)
		}
	}
}

func TestSplitLinesHelper(t *testing.T) {
	got := splitLines([]string{"a\nb", "", "c"})
	want := []string{"a", "b", "", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitLines() = %q, want %q", got, want)
	}
}

// splitLines returns the ordered lines carried by chunks.
func splitLines(chunks []string) []string {
	var lines []string
	for _, c := range chunks {
		lines = append(lines, strings.Split(c, "\n")...)
	}
	return lines
}
