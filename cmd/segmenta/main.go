// Segmenta - a text chunker with overlap windows and a local document store
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/segmenta/internal/config"
	"github.com/shivavenkatesh/segmenta/internal/logging"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	configFile string
	dataDir    string
	project    string
	verbose    bool

	// Set by loadConfig before any command runs
	cfg    *config.Config
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "segmenta",
	Short: "Split text into size-bounded, overlapping chunks",
	Long: `Segmenta splits documents into chunks that fit a size budget measured in
words, characters or tokens. A cascade of splitters (sentences, paragraphs,
punctuation, words) breaks text down until every piece fits, and an optional
overlap window repeats the tail of each chunk at the start of the next.

Chunked documents can be kept in a local SQLite store and served over HTTP.

Examples:
  # Chunk a file into 200-token pieces with 10% overlap
  segmenta chunk README.md --estimator tiktoken --size 200 --overlap 0.1

  # Chunk stdin and print JSON
  cat notes.txt | segmenta chunk --format json

  # Index a directory of documents
  segmenta index ./docs --project handbook

  # Start the HTTP API
  segmenta serve`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: ./segmenta.yaml or <data-dir>/segmenta.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.segmenta)")
	rootCmd.PersistentFlags().StringVarP(&project, "project", "p", "", "Project name (default: current directory name)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig resolves configuration from defaults, file, environment and the
// global flags, then builds the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	v := config.NewViper()
	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return err
	}
	if verbose {
		v.Set("log.level", "debug")
	}

	c, err := config.Load(v, configFile)
	if err != nil {
		return err
	}

	l, err := logging.New(c.Logging())
	if err != nil {
		return err
	}

	cfg, logger = c, l
	logger.Debug("configuration loaded", "data_dir", cfg.DataDir, "estimator", cfg.Estimator.Name, "chunk_size", cfg.ChunkSize)
	return nil
}
