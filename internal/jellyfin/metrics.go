package jellyfin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess      = "success"
	outcomeTransport    = "transport_error"
	outcomeBadResponse  = "bad_response"
	outcomeUnauthorized = "unauthorized"
	outcomeNotFound     = "not_found"
	outcomeServerError  = "server_error"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jfpvr_jellyfin_requests_total",
	Help: "Outcome of requests against the media server by method",
}, []string{"method", "outcome"})

func observeRequest(method, outcome string) {
	requestsTotal.WithLabelValues(method, outcome).Inc()
}
