package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hjh12035/NLP-Proj2/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant as an HTTP service",
	Long: `Serve the course assistant over HTTP.

Endpoints:
  POST /chat      - answer a question (set "stream": true for SSE)
  POST /quiz      - generate quiz questions
  POST /outline   - generate a study outline (set "stream": true for SSE)
  POST /build-kb  - rebuild the knowledge base from the data directory
  GET  /health    - liveness check

Each chat session gets its own context window, identified by the
session_id returned on the first request.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: LISTEN_ADDR or :8000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	addr := serveAddr
	if addr == "" {
		addr = st.cfg.ListenAddr
	}

	srv, err := server.New(server.Config{
		Addr: addr,
		NewAgent: func() (server.Agent, error) {
			return st.newAssistant()
		},
		BuildKB: func(ctx context.Context) (int, error) {
			return st.buildKnowledgeBase(ctx, false)
		},
	}, st.logger)
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}
