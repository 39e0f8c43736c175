package ember

import (
	stdhttp "net/http"
	"time"

	"github.com/gorilla/mux"
	json "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the state of the App reported by the admin endpoint.
type Status struct {
	Listeners []string `json:"listeners"`
	Routes    []string `json:"routes"`
	Uptime    string   `json:"uptime"`
}

// adminRouter serves Prometheus metrics at /metrics and the status at /status.
func (a *App) adminRouter() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/status", a.serveStatus).Methods("GET")

	return router
}

func (a *App) status() Status {
	var status Status
	for _, addr := range a.Addrs() {
		status.Listeners = append(status.Listeners, addr.String())
	}

	for _, route := range a.manager.Routes() {
		status.Routes = append(status.Routes, route.String())
	}

	if !a.started.IsZero() {
		status.Uptime = time.Since(a.started).Round(time.Second).String()
	}

	return status
}

func (a *App) serveStatus(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(a.status()); err != nil {
		a.logger.Error("failed to encode status", "error", err)
	}
}
