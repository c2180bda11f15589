package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Mux *http.ServeMux
}

// New returns a mux serving /metrics from gatherer and /healthz.
func New(gatherer prometheus.Gatherer) *Server {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	m.HandleFunc("/healthz", Healthz())
	return &Server{Mux: m}
}
