package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/repairsched/api/runs"
	"github.com/kilianp07/repairsched/config"
	"github.com/kilianp07/repairsched/core/runlog"
	inframetrics "github.com/kilianp07/repairsched/infra/metrics"
)

func newServer(cfg config.APIConfig, store runlog.Store, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", inframetrics.Handler(g))
	mux.Handle("/api/runs", runs.NewHandler(store, cfg.Token))
	return &http.Server{Addr: cfg.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
