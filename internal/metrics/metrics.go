package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsLoadedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_rows_loaded_total",
		Help: "Records kept after parsing, by dataset",
	}, []string{"dataset"})
	RowsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_rows_dropped_total",
		Help: "Input rows dropped during ingest, by dataset",
	}, []string{"dataset"})
	StageDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "territory_stage_duration_ms",
		Help:    "Pipeline stage duration in milliseconds",
		Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 15000, 60000},
	}, []string{"stage"})
	AssignmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_assignments_total",
		Help: "ZIP assignments produced, by branch (owned, prospective, unassigned)",
	}, []string{"branch"})
	ExportFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_export_failures_total",
		Help: "Best-effort export failures, by format",
	}, []string{"format"})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "territory_api_requests_total",
		Help: "Total API requests by route and status",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "territory_api_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "territory_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "territory_redis_misses_total",
		Help: "Total redis cache misses",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "territory_api_rate_limited_total",
		Help: "Requests rejected by the token bucket",
	})
)

func init() {
	prometheus.MustRegister(RowsLoadedTotal)
	prometheus.MustRegister(RowsDroppedTotal)
	prometheus.MustRegister(StageDurationMs)
	prometheus.MustRegister(AssignmentsTotal)
	prometheus.MustRegister(ExportFailuresTotal)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(RateLimitedTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在 API 主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
