package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/segmenta/pkg/types"
)

var (
	addSize     int
	addOverlap  float64
	addMetadata map[string]string
)

var addCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Chunk text and store it as a document",
	Long: `Chunk inline text (or stdin) and keep the document and its chunks in the
local store.

Examples:
  segmenta add "Chunks keep their overlap parts for later inspection."
  cat meeting.txt | segmenta add --meta kind=minutes --project team`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().IntVarP(&addSize, "size", "s", 0, "Chunk size override")
	addCmd.Flags().Float64VarP(&addOverlap, "overlap", "o", 0, "Overlap ratio override")
	addCmd.Flags().StringToStringVar(&addMetadata, "meta", nil, "Metadata as key=value pairs")
}

func runAdd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		var err error
		if text, err = readInput(cmd, nil); err != nil {
			return err
		}
	}

	svc, err := initService()
	if err != nil {
		return err
	}
	defer svc.Close()

	req := types.AddDocumentRequest{
		Text:      text,
		Project:   getProject(),
		ChunkSize: addSize,
		Metadata:  addMetadata,
	}
	if cmd.Flags().Changed("overlap") {
		req.OverlapRatio = &addOverlap
	}

	doc, err := svc.AddDocument(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stored document %s (%d chunks)\n", doc.ID, doc.ChunkCount)
	fmt.Fprintf(cmd.OutOrStdout(), "  Project: %s\n", doc.Project)
	fmt.Fprintf(cmd.OutOrStdout(), "  Content: %s\n", truncate(doc.Content, 100))
	return nil
}
