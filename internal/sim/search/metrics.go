package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timewarp_search_total",
		Help: "Searches run, by outcome",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timewarp_search_duration_seconds",
		Help:    "Wall-clock time spent per search",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"outcome"})

	searchExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timewarp_search_expanded_nodes",
		Help:    "Frontier nodes expanded per search",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	})

	searchPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timewarp_search_pruned_branches_total",
		Help: "Look-ahead branches abandoned, by reason",
	}, []string{"reason"})

	searchPathLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timewarp_search_path_ticks",
		Help:    "Ticks in paths returned by successful searches",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
)
