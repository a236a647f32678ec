// Server commands: the transport proxy and the reference upstream.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roster/internal/proxy"
	"github.com/mesh-intelligence/roster/internal/redisstore"
	"github.com/mesh-intelligence/roster/internal/sqlite"
	"github.com/mesh-intelligence/roster/internal/upstream"
	"github.com/mesh-intelligence/roster/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transport proxy",
		Long: "Serve the four proxy routes (list, create, update, delete) under the\n" +
			"configured api_prefix, forwarding to upstream_url. /metrics and /health\n" +
			"are served alongside.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = cfg.Listen
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			p, err := proxy.New(proxy.Options{
				UpstreamURL: cfg.UpstreamURL,
				Prefix:      cfg.APIPrefix,
				HTTPClient:  &http.Client{Timeout: cfg.Timeout},
				Registry:    reg,
			})
			if err != nil {
				return userError(err)
			}
			glog.Infof("proxy forwarding %s%s/* to %s", listen, cfg.APIPrefix, cfg.UpstreamURL)
			return serve(cmd.Context(), "proxy", listen, p.Router())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default: config listen)")
	return cmd
}

func newUpstreamCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "upstream",
		Short: "Run the reference upstream person service",
		Long: "Serve the upstream person REST contract (list, create, update/{id},\n" +
			"delete/{id}) under upstream_prefix, stored in the configured backend\n" +
			"(sqlite or redis). Intended for development and tests.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = cfg.UpstreamListen
			}
			store, err := openStore(cfg)
			if err != nil {
				return sysError(fmt.Errorf("attach %s backend: %w", cfg.Backend, err))
			}
			defer store.Detach()

			glog.Infof("upstream serving %s%s over %s", listen, cfg.UpstreamPrefix, cfg.Backend)
			return serve(cmd.Context(), "upstream", listen, upstream.NewRouter(store, cfg.UpstreamPrefix))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default: config upstream_listen)")
	return cmd
}

// openStore attaches the PersonStore named by c.Backend.
func openStore(c types.Config) (types.PersonStore, error) {
	var store types.PersonStore
	switch c.Backend {
	case types.BackendRedis:
		store = redisstore.NewStore()
	case types.BackendSQLite:
		store = sqlite.NewStore()
	default:
		return nil, types.ErrBackendUnknown
	}
	if err := store.Attach(c); err != nil {
		return nil, err
	}
	return store, nil
}

// serve runs handler on addr until ctx ends or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func serve(ctx context.Context, name, addr string, handler http.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer glog.Flush()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return sysError(fmt.Errorf("listen %s: %w", addr, err))
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	glog.Infof("%s listening on %s", name, ln.Addr())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return sysError(fmt.Errorf("%s: %w", name, err))
		}
		return nil
	case <-ctx.Done():
	}

	glog.Infof("%s shutting down", name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return sysError(fmt.Errorf("%s shutdown: %w", name, err))
	}
	return nil
}
