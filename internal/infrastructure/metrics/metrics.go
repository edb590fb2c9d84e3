// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MeetingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peermeet_meetings_created_total",
		Help: "Number of meetings created.",
	})

	SignIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peermeet_sign_ins_total",
		Help: "Number of successful sign-ins.",
	})

	SessionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peermeet_session_rejections_total",
		Help: "REST session rejections by reason.",
	}, []string{"reason"})

	RoomEnters = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peermeet_room_enters_total",
		Help: "Number of successful realtime room entries.",
	})

	RoomRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "peermeet_room_rejections_total",
		Help: "Realtime room-entry rejections by reason.",
	}, []string{"reason"})

	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "peermeet_live_connections",
		Help: "Currently connected realtime peers.",
	})

	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "peermeet_messages_relayed_total",
		Help: "Chat messages relayed between peers.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "peermeet_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Rejection reason labels.
const (
	ReasonExpired      = "meeting_expired"
	ReasonFull         = "meeting_full"
	ReasonTaken        = "username_taken"
	ReasonBadPassword  = "incorrect_password"
	ReasonBadToken     = "bad_token"
	ReasonStorageError = "storage_error"
)

func Handler() http.Handler {
	return promhttp.Handler()
}
