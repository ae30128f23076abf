package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	acksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timewarp_ws_acks_total",
		Help: "GAME_INFO acknowledgements sent by the receiving server, by result",
	}, []string{"result"})

	submittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timewarp_ws_submitted_total",
		Help: "GAME_INFO messages sent by the client, by result",
	}, []string{"result"})
)
