package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/qagent/internal/adapters/driving/mcp"
	"github.com/custodia-labs/qagent/internal/connectors/filesystem"
	"github.com/custodia-labs/qagent/internal/logger"
)

var (
	serveSources sourceFlags
	servePort    int
	serveWatch   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC. Use --port to
serve over HTTP instead (MCP Inspector, remote access).

Documents passed with --docs are loaded into the default session before the
server starts. --watch rebuilds the knowledge base whenever files in the
given directory change.

Examples:
  qagent serve --docs ./docs --page checkout.html
  qagent serve --port 8080 --watch ./docs

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "qagent": {
        "command": "/path/to/qagent",
        "args": ["serve", "--docs", "/path/to/docs"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveSources.register(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (0 = use stdio)")
	serveCmd.Flags().StringVarP(&serveWatch, "watch", "w", "", "directory to watch for documentation changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveWatch != "" && cfg.Loader == nil {
		return errors.New("document loader not configured")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sources := serveSources
	if serveWatch != "" {
		sources.docs = append(append([]string(nil), sources.docs...), serveWatch)
	}

	id, closeSession, err := openSession(ctx, cmd, &sources)
	if err != nil {
		return hint(err)
	}
	defer closeSession()

	server, err := mcp.NewServer(&mcp.Ports{
		Sessions:  cfg.Sessions,
		TestCases: cfg.TestCases,
		Scripts:   cfg.Scripts,
	}, mcp.WithSessionID(id))
	if err != nil {
		return err
	}
	defer server.Close() //nolint:errcheck

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		if servePort > 0 {
			addr := fmt.Sprintf(":%d", servePort)
			cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(gctx, addr)
		}
		return server.Run(gctx)
	})

	if serveWatch != "" {
		r := &reloader{cmd: cmd, id: id, sources: sources}
		watcher := filesystem.NewWatcher(serveWatch, cfg.Loader.Accepts)
		g.Go(func() error {
			return watcher.Watch(gctx, r.reload)
		})
		cmd.PrintErrf("Watching %s\n", serveWatch)
	}

	return g.Wait()
}

// reloader rebuilds a session from scratch when watched files change.
type reloader struct {
	mu      sync.Mutex
	cmd     *cobra.Command
	id      string
	sources sourceFlags
}

func (r *reloader) reload(ctx context.Context, changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := logger.For("watch")
	log.Info("%d files changed, rebuilding knowledge base", len(changed))

	if err := cfg.Sessions.Clear(ctx, r.id); err != nil {
		log.Error("Clear session: %v", err)
		return
	}
	loaded, err := loadSources(ctx, r.cmd, r.id, &r.sources)
	if err != nil {
		log.Error("Reload documents: %v", err)
		return
	}
	if !loaded {
		return
	}
	chunks, err := cfg.Sessions.Build(ctx, r.id)
	if err != nil {
		log.Error("Rebuild knowledge base: %v", err)
		return
	}
	log.Info("Rebuilt knowledge base: %d chunks", chunks)
}
