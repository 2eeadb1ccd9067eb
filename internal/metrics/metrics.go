package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geodir_queries_total",
		Help: "Total number of directory queries by operation",
	}, []string{"op"})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geodir_query_duration_ms",
		Help:    "Directory query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"op"})
	QueryErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geodir_query_errors_total",
		Help: "Total number of failed directory queries by operation",
	}, []string{"op"})
	EmptyResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geodir_empty_results_total",
		Help: "Total number of queries with no organizations",
	}, []string{"op"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodir_cache_hits_total",
		Help: "Total result cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geodir_cache_misses_total",
		Help: "Total result cache misses",
	})
	UnitOfWorkTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geodir_uow_total",
		Help: "Units of work by isolation and outcome",
	}, []string{"isolation", "outcome"})
	AuthFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geodir_auth_failures_total",
		Help: "Rejected api keys by reason",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(QueryErrorsTotal)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(UnitOfWorkTotal)
	prometheus.MustRegister(AuthFailuresTotal)
}

// 文档注释：返回 Prometheus 指标监听器，在主入口挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }
