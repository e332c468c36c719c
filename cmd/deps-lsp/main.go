// Command deps-lsp starts the dependency-manifest language server over
// stdio (spec.md §6). Logging goes to stderr exclusively — stdout carries
// nothing but JSON-RPC framing, the same separation the teacher's own
// command-line tools draw between program output and diagnostic logging.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/deps-lsp/deps-lsp/internal/lsp"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	code, err := run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func run(ctx context.Context) (int, error) {
	var stdio bool
	var verbose bool

	root := &cobra.Command{
		Use:   "deps-lsp",
		Short: "Language server providing dependency-management assistance for package manifests",
	}
	root.Flags().BoolVar(&stdio, "stdio", false, "communicate over stdin/stdout (the only supported transport)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	exitCode := 0
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if !stdio {
			return errors.New("deps-lsp currently only supports --stdio")
		}

		logger, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer logger.Sync()

		code, err := serve(cmd.Context(), logger)
		exitCode = code
		return err
	}

	if err := root.ExecuteContext(ctx); err != nil {
		if exitCode == 0 {
			exitCode = 1
		}
		return exitCode, err
	}
	return exitCode, nil
}

// serve runs the JSON-RPC connection over stdin/stdout until the client
// disconnects or sends exit. Exit codes follow spec.md §6: 0 for a clean
// shutdown→exit sequence, 1 if exit arrived without shutdown, 2 for a
// transport-level failure.
func serve(ctx context.Context, logger *zap.Logger) (int, error) {
	stream := jsonrpc2.NewStream(stdRWC{})
	conn := jsonrpc2.NewConn(stream)
	client := protocol.ClientDispatcher(conn, logger)

	server := lsp.NewServer(client, logger)
	ctx = protocol.WithClient(ctx, client)

	conn.Go(ctx, protocol.ServerHandler(server, jsonrpc2.MethodNotFoundHandler))

	select {
	case <-conn.Done():
		if err := conn.Err(); err != nil {
			logger.Error("jsonrpc2 connection closed with a transport error", zap.Error(err))
			return 2, err
		}
	case <-server.Done():
	case <-ctx.Done():
		_ = conn.Close()
	}

	return server.ExitCode(), nil
}

// newLogger builds a zap logger writing exclusively to stderr, since stdout
// is reserved for LSP JSON-RPC framing.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// stdRWC adapts stdin/stdout into a single io.ReadWriteCloser, as required
// by jsonrpc2.NewStream for a stdio transport.
type stdRWC struct{}

func (stdRWC) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdRWC) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdRWC) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

var _ io.ReadWriteCloser = stdRWC{}
