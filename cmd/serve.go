package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/nsxbet/cypher-guard/pkg/mcpserver"
	"github.com/nsxbet/cypher-guard/pkg/rewriter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rewriter as MCP tools over stdio",
	Long: `Serve starts a Model Context Protocol server on stdin/stdout so an LLM
agent can certify each generated query before executing it.

Logs are written to stderr; stdout carries only protocol messages.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := newLogger()

	cfg, err := loadPolicy()
	if err != nil {
		return errors.Wrap(err, "failed to load policy")
	}

	rw, err := rewriter.New(cfg, rewriter.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("MCP server starting", "version", version, "dialect", cfg.Version.String(), "allow_apoc", cfg.AllowApoc, "strict", cfg.Strict)
	srv := mcpserver.NewServer(rw, version, log.With("component", "mcpserver"))
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "MCP server stopped")
	}
	return nil
}
