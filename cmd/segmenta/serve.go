package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shivavenkatesh/segmenta/internal/server"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

The server exposes a REST API for chunking text, indexing files and
browsing stored documents.

Examples:
  segmenta serve
  segmenta serve --port 3456
  segmenta serve --host 0.0.0.0 --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 3456)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config, 127.0.0.1)")
}

func runServe(cmd *cobra.Command, args []string) error {
	host, port := cfg.Server.Host, cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	svc, err := initService()
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.New(svc, server.Config{
		Host:    host,
		Port:    port,
		Version: Version,
		Logger:  logger,
	})

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Segmenta server listening on http://%s\n", srv.Addr())
	fmt.Fprintln(out, "Press Ctrl+C to stop")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Endpoints:")
	fmt.Fprintln(out, "  POST   /chunk                 - Chunk text")
	fmt.Fprintln(out, "  POST   /index                 - Index a file or directory")
	fmt.Fprintln(out, "  GET    /documents             - List documents")
	fmt.Fprintln(out, "  POST   /documents             - Add a document")
	fmt.Fprintln(out, "  GET    /documents/:id         - Get a document")
	fmt.Fprintln(out, "  DELETE /documents/:id         - Delete a document")
	fmt.Fprintln(out, "  GET    /documents/:id/chunks  - Get document chunks")
	fmt.Fprintln(out, "  GET    /projects              - List projects")
	fmt.Fprintln(out, "  DELETE /projects/:name        - Delete a project")
	fmt.Fprintln(out, "  GET    /stats                 - Get statistics")
	fmt.Fprintln(out, "  GET    /health                - Health check")

	return srv.Start()
}
