// Package metrics exposes Prometheus collectors for the realtime layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "league_ws_connections",
		Help: "Currently open websocket connections.",
	})
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "league_rooms_active",
		Help: "Live rooms held by the registry.",
	})
	FramesBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "league_frames_broadcast_total",
		Help: "Frames fanned out to room members.",
	})
	DraftsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "league_drafts_completed_total",
		Help: "Drafts that reached COMPLETED.",
	})
	ProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "league_protocol_errors_total",
		Help: "Inbound frames rejected as malformed or unknown.",
	})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
