package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/segmenta/pkg/types"
)

var (
	indexSize     int
	indexOverlap  float64
	indexMetadata map[string]string
	indexFormat   string
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Chunk and store a file or directory",
	Long: `Chunk a file, or every text file below a directory, and keep each file as a
document in the local store. Files that cannot be chunked are reported and
skipped.

Indexed file types:
  Text: .md, .markdown, .txt, .rst, .adoc, .org, .tex, .html, .csv
  Data: .json, .yaml, .yml, .toml
  Code: .go, .py, .js, .ts, .java, .rs, .c, .h, .rb, .sh, .sql

Ignored by default:
  .git, node_modules, vendor, __pycache__, .venv, dist, build

Examples:
  segmenta index ./docs
  segmenta index ./README.md --size 200 --overlap 0.1
  segmenta index . --project handbook --meta source=wiki`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVarP(&indexSize, "size", "s", 0, "Chunk size override")
	indexCmd.Flags().Float64VarP(&indexOverlap, "overlap", "o", 0, "Overlap ratio override")
	indexCmd.Flags().StringToStringVar(&indexMetadata, "meta", nil, "Metadata as key=value pairs")
	indexCmd.Flags().StringVarP(&indexFormat, "format", "f", formatText, "Output format: text, json, yaml")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := args[0]

	svc, err := initService()
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("indexing", "path", path, "project", getProject())

	req := types.IndexRequest{
		Path:      path,
		Project:   getProject(),
		ChunkSize: indexSize,
		Metadata:  indexMetadata,
	}
	if cmd.Flags().Changed("overlap") {
		req.OverlapRatio = &indexOverlap
	}

	resp, err := svc.Index(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	return writeOutput(cmd.OutOrStdout(), indexFormat, resp, func(w io.Writer) error {
		fmt.Fprintf(w, "Indexed %d documents (%d chunks) in %s\n",
			len(resp.Documents), resp.Chunks, (time.Duration(resp.Timing) * time.Millisecond).String())
		if len(resp.Skipped) > 0 {
			fmt.Fprintf(w, "Skipped %d files:\n", len(resp.Skipped))
			for _, p := range resp.Skipped {
				fmt.Fprintf(w, "  %s\n", p)
			}
		}
		return nil
	})
}
