package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartServer binds addr and serves the default Prometheus registry on
// /metrics in the background. The returned server's Addr holds the bound
// address, which is useful when addr requests an ephemeral port. Callers
// own the server's Shutdown.
func StartServer(ctx context.Context, addr string) (*http.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    lis.Addr().String(),
		Handler: mux,
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.FromContext(ctx).With("addr", srv.Addr).
				With("error", err.Error()).
				Error("Metrics server stopped")
		}
	}()

	return srv, nil
}
