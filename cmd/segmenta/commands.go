package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/segmenta/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Long: `List documents in the current project, newest first.

Examples:
  segmenta list
  segmenta list --source ./docs/ --limit 50
  segmenta list --all --format json`,
	RunE: runList,
}

var (
	listLimit  int
	listOffset int
	listSource string
	listAll    bool
	listFormat string
)

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum results")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Skip this many results")
	listCmd.Flags().StringVar(&listSource, "source", "", "Filter by source path prefix")
	listCmd.Flags().BoolVar(&listAll, "all", false, "List every project")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", formatText, "Output format: text, json, yaml")
}

func runList(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := store.ListOptions{
		Source:     listSource,
		Limit:      listLimit,
		Offset:     listOffset,
		Descending: true,
		OrderBy:    "created_at",
	}
	if !listAll {
		opts.Project = getProject()
	}

	docs, err := svc.List(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	return writeOutput(cmd.OutOrStdout(), listFormat, docs, func(w io.Writer) error {
		if len(docs) == 0 {
			fmt.Fprintln(w, "No documents found")
			return nil
		}
		for _, d := range docs {
			name := d.Source
			if name == "" {
				name = "(inline)"
			}
			fmt.Fprintf(w, "  %s  %-12s %4d chunks  %s\n", d.ID, d.Project, d.ChunkCount, name)
		}
		return nil
	})
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a document and its chunks",
	Long: `Show a stored document. With --chunks the stored chunks are printed too.

Examples:
  segmenta show 3f1c...
  segmenta show 3f1c... --chunks --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var (
	showChunks bool
	showFormat string
)

func init() {
	showCmd.Flags().BoolVarP(&showChunks, "chunks", "c", false, "Include chunks")
	showCmd.Flags().StringVarP(&showFormat, "format", "f", formatText, "Output format: text, json, yaml")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := initService()
	if err != nil {
		return err
	}
	defer svc.Close()

	doc, err := svc.Get(ctx, args[0])
	if err != nil {
		return err
	}

	out := map[string]any{"document": doc}
	chunks, err := svc.Chunks(ctx, doc.ID)
	if err != nil {
		return err
	}
	if showChunks {
		out["chunks"] = chunks
	}

	return writeOutput(cmd.OutOrStdout(), showFormat, out, func(w io.Writer) error {
		fmt.Fprintf(w, "ID:         %s\n", doc.ID)
		fmt.Fprintf(w, "Project:    %s\n", doc.Project)
		if doc.Source != "" {
			fmt.Fprintf(w, "Source:     %s\n", doc.Source)
		}
		fmt.Fprintf(w, "Estimator:  %s\n", doc.Estimator)
		fmt.Fprintf(w, "Chunk size: %d (overlap ratio %.2f)\n", doc.ChunkSize, doc.OverlapRatio)
		fmt.Fprintf(w, "Chunks:     %d\n", len(chunks))
		fmt.Fprintf(w, "Created:    %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		if len(doc.Metadata) > 0 {
			keys := make([]string, 0, len(doc.Metadata))
			for k := range doc.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintln(w, "Metadata:")
			for _, k := range keys {
				fmt.Fprintf(w, "  %s = %s\n", k, doc.Metadata[k])
			}
		}
		if showChunks {
			fmt.Fprintln(w)
			return printChunks(w, chunks)
		}
		return nil
	})
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document",
	Long: `Delete a document and its chunks by ID.

Examples:
  segmenta delete 3f1c...
  segmenta delete --all  # Delete all documents in project`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDelete,
}

var deleteAll bool

func init() {
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete all documents in project")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := initService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if deleteAll {
		n, err := svc.DeleteByProject(ctx, getProject())
		if err != nil {
			return fmt.Errorf("failed to delete documents: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d documents in project '%s'\n", n, getProject())
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("document ID required (or use --all)")
	}

	id := args[0]
	if err := svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", id)
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics",
	Long: `Show statistics about stored documents.

Examples:
  segmenta stats
  segmenta stats --format json`,
	RunE: runStats,
}

var statsFormat string

func init() {
	statsCmd.Flags().StringVarP(&statsFormat, "format", "f", formatText, "Output format: text, json, yaml")
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return err
	}
	defer svc.Close()

	stats, err := svc.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	return writeOutput(cmd.OutOrStdout(), statsFormat, stats, func(w io.Writer) error {
		fmt.Fprintln(w, "Segmenta Statistics")
		fmt.Fprintln(w, "───────────────────")
		fmt.Fprintf(w, "Documents:     %d\n", stats.TotalDocuments)
		fmt.Fprintf(w, "Chunks:        %d\n", stats.TotalChunks)
		fmt.Fprintf(w, "Projects:      %d\n", stats.ProjectCount)
		fmt.Fprintf(w, "Estimator:     %s\n", stats.Estimator)
		fmt.Fprintf(w, "Storage size:  %.2f MB\n", float64(stats.StorageBytes)/1024/1024)

		if len(stats.DocumentsByProject) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "By project:")
			projects := make([]string, 0, len(stats.DocumentsByProject))
			for p := range stats.DocumentsByProject {
				projects = append(projects, p)
			}
			sort.Strings(projects)
			for _, p := range projects {
				fmt.Fprintf(w, "  %-20s %d\n", p, stats.DocumentsByProject[p])
			}
		}
		return nil
	})
}
