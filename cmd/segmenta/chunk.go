package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/segmenta/internal/ingest"
	"github.com/shivavenkatesh/segmenta/pkg/chunking"
	"github.com/shivavenkatesh/segmenta/pkg/types"
)

var (
	chunkSize      int
	chunkOverlap   float64
	chunkPolicy    string
	chunkEstimator string
	chunkEncoding  string
	chunkSplitters []string
	chunkMode      string
	chunkFormat    string
	chunkTrim      bool
	chunkParts     bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Split a file or stdin into chunks",
	Long: `Split text into chunks and print them. Nothing is stored.

The text is read from the file argument, or from stdin when the argument is
missing or "-". Sizes are measured with the configured estimator: word
(default), char, tiktoken or remote.

Splitters named with --splitters run before the default cascade
(semicolon, colon, comma, word). Known names: sentences, paragraphs,
newline, fullstop, semicolon, colon, comma, word, and sep:<literal>.

Examples:
  segmenta chunk README.md --size 100
  segmenta chunk notes.txt --splitters paragraphs,sentences --overlap 0.2
  segmenta chunk book.txt --estimator tiktoken --encoding gpt-4o --size 512
  segmenta chunk --mode fixed --estimator char --size 80 < data.txt
  echo "one two three four" | segmenta chunk --size 2 --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().IntVarP(&chunkSize, "size", "s", 0, "Chunk size in estimator units (default from config)")
	chunkCmd.Flags().Float64VarP(&chunkOverlap, "overlap", "o", 0, "Overlap ratio between 0 and 1")
	chunkCmd.Flags().StringVar(&chunkPolicy, "policy", "", "Overlap policy: evict-before-admit or admit-then-evict")
	chunkCmd.Flags().StringVarP(&chunkEstimator, "estimator", "e", "", "Size estimator: word, char, tiktoken, remote")
	chunkCmd.Flags().StringVar(&chunkEncoding, "encoding", "", "Tiktoken encoding or model name")
	chunkCmd.Flags().StringSliceVar(&chunkSplitters, "splitters", nil, "Splitters to run before the defaults, coarsest first")
	chunkCmd.Flags().StringVarP(&chunkMode, "mode", "m", ingest.ModeRecursive, "Chunking mode: recursive or fixed")
	chunkCmd.Flags().StringVarP(&chunkFormat, "format", "f", formatText, "Output format: text, json, yaml")
	chunkCmd.Flags().BoolVar(&chunkTrim, "trim", false, "Trim surrounding whitespace from chunk text")
	chunkCmd.Flags().BoolVar(&chunkParts, "parts", false, "Include overlap and content parts in json/yaml output")
}

func runChunk(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	c := *cfg
	flags := cmd.Flags()
	if flags.Changed("size") {
		c.ChunkSize = chunkSize
	}
	if flags.Changed("overlap") {
		c.OverlapRatio = chunkOverlap
	}
	if flags.Changed("policy") {
		c.OverlapPolicy = chunkPolicy
	}
	if flags.Changed("estimator") {
		c.Estimator.Name = chunkEstimator
	}
	if flags.Changed("encoding") {
		c.Estimator.Encoding = chunkEncoding
	}
	if flags.Changed("splitters") {
		c.Splitters = chunkSplitters
	}
	if err := c.Validate(); err != nil {
		return err
	}

	chunkCfg, err := c.ChunkingConfig(logger)
	if err != nil {
		return err
	}
	if closer, ok := chunkCfg.SizeEstimator.(io.Closer); ok {
		defer closer.Close()
	}

	var chunker chunking.Chunker
	switch chunkMode {
	case ingest.ModeRecursive:
		chunker, err = chunking.NewRecursiveChunker(chunkCfg)
	case ingest.ModeFixed:
		chunker, err = chunking.NewFixedSizeChunker(chunkCfg)
	default:
		err = fmt.Errorf("unknown mode %q (want recursive or fixed)", chunkMode)
	}
	if err != nil {
		return err
	}

	start := time.Now()
	chunks, err := chunker.Chunk(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}

	resp := types.ChunkResponse{
		Chunks: types.NewStoredChunks("", chunks, chunkTrim),
		Total:  len(chunks),
		Timing: time.Since(start).Milliseconds(),
	}
	if !chunkParts {
		for i := range resp.Chunks {
			resp.Chunks[i].Overlap = nil
			resp.Chunks[i].Content = nil
		}
	}

	return writeOutput(cmd.OutOrStdout(), chunkFormat, resp, func(w io.Writer) error {
		return printChunks(w, resp.Chunks)
	})
}

func printChunks(w io.Writer, chunks []types.StoredChunk) error {
	for i, c := range chunks {
		if _, err := fmt.Fprintf(w, "── chunk %d/%d · size %d · overlap %d ──\n%s\n\n", i+1, len(chunks), c.Size, c.OverlapSize, c.Text); err != nil {
			return err
		}
	}
	return nil
}

// readInput returns the content of the file argument, or stdin.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}
