package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay direction labels for BytesRelayed.
const (
	DirectionToUpstream = "to_upstream"
	DirectionToClient   = "to_client"
)

var (
	// ConnectionsActive is the current number of client connections being
	// handled.
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ferry_connections_active",
		Help: "Current number of active SOCKS5 client connections",
	})

	// ConnectionsTotal counts every accepted client connection.
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ferry_connections_total",
		Help: "Total number of accepted SOCKS5 client connections",
	})

	// BytesRelayed counts payload bytes moved by the relay, labeled by
	// direction.
	BytesRelayed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ferry_relay_bytes_total",
		Help: "Total bytes relayed between clients and upstream targets",
	}, []string{"direction"})
)

func init() {
	prometheus.MustRegister(ConnectionsActive, ConnectionsTotal, BytesRelayed)
}

// StartServer serves /metrics on addr until ctx is canceled.
func StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}
