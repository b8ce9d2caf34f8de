package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rg/danmakubot/internal/chunk"
)

func newSplitCmd() *cobra.Command {
	var limit int
	var check bool

	cmd := &cobra.Command{
		Use:   "split [file]",
		Short: "Split text into message-sized chunks and print them",
		Long: "Reads text from file (or stdin) and prints the chunks the bot would send.\n" +
			"With --check the command fails if any chunk is longer than the limit.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runSplit(in, cmd.OutOrStdout(), limit, check)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", chunk.DefaultLimit, "maximum chunk length in characters")
	cmd.Flags().BoolVar(&check, "check", false, "fail if a line is too long to fit in one chunk")
	return cmd
}

func runSplit(in io.Reader, out io.Writer, limit int, check bool) error {
	if err := chunk.ValidateLimit(limit); err != nil {
		return err
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	chunks := chunk.Split(string(data), limit)

	oversized := 0
	for i, c := range chunks {
		n := chunk.Len(c)
		if n > limit {
			oversized++
		}
		if _, err := fmt.Fprintf(out, "--- chunk %d/%d (%d) ---\n%s\n", i+1, len(chunks), n, c); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if check && oversized > 0 {
		return fmt.Errorf("%d of %d chunks exceed limit %d", oversized, len(chunks), limit)
	}
	return nil
}
