// Package metrics exports editor mutation outcomes to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements editor.Recorder on a private registry.
type Recorder struct {
	Registry  *prometheus.Registry
	mutations *prometheus.CounterVec
	count     prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "annotator_mutations_total",
			Help: "Annotation mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		count: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "annotator_annotations",
			Help: "Current number of annotations in the store",
		}),
	}
	r.Registry.MustRegister(r.mutations, r.count)
	return r
}

func (r *Recorder) Mutation(op, outcome string) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(op, outcome).Inc()
}

func (r *Recorder) Annotations(n int) {
	if r == nil {
		return
	}
	r.count.Set(float64(n))
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
