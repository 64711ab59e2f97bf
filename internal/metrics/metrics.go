package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhyrak/localsearch/internal/scheduler"
)

// Collector records finished search runs and HTTP traffic on its own registry.
type Collector struct {
	registry        *prometheus.Registry
	handler         http.Handler
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runIterations   *prometheus.HistogramVec
	bestHard        *prometheus.GaugeVec
	bestSoft        *prometheus.GaugeVec
	activeRuns      prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "search_runs_total",
		Help: "Finished search runs by strategy and termination reason",
	}, []string{"strategy", "reason"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "search_run_duration_seconds",
		Help:    "Wall-clock duration of search runs",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"strategy"})

	runIterations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "search_run_iterations",
		Help:    "Iterations performed per search run",
		Buckets: prometheus.ExponentialBuckets(10, 10, 7),
	}, []string{"strategy"})

	bestHard := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "search_last_hard_violations",
		Help: "Hard violations of the last finished run",
	}, []string{"strategy"})

	bestSoft := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "search_last_soft_penalty",
		Help: "Soft penalty of the last finished run",
	}, []string{"strategy"})

	activeRuns := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "search_active_runs",
		Help: "Runs currently in progress",
	})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	registry.MustRegister(runsTotal, runDuration, runIterations, bestHard, bestSoft, activeRuns, requestDuration)

	return &Collector{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		runIterations:   runIterations,
		bestHard:        bestHard,
		bestSoft:        bestSoft,
		activeRuns:      activeRuns,
		requestDuration: requestDuration,
	}
}

// RecordRun implements scheduler.RunRecorder.
func (c *Collector) RecordRun(r *scheduler.Report) {
	strategy := string(r.Strategy)
	c.runsTotal.WithLabelValues(strategy, string(r.Reason)).Inc()
	c.runDuration.WithLabelValues(strategy).Observe(r.Elapsed.Seconds())
	c.runIterations.WithLabelValues(strategy).Observe(float64(r.Iterations))
	c.bestHard.WithLabelValues(strategy).Set(float64(r.Cost.Hard))
	c.bestSoft.WithLabelValues(strategy).Set(float64(r.Cost.Soft))
}

func (c *Collector) RunStarted()  { c.activeRuns.Inc() }
func (c *Collector) RunFinished() { c.activeRuns.Dec() }

// Registry exposes the underlying registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler exposes the Prometheus HTTP handler.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

// GinMiddleware observes request latency by route template.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		c.requestDuration.WithLabelValues(ctx.Request.Method, path, strconv.Itoa(ctx.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
