package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cfddns_panel"

var (
	PollTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Number of executed poll ticks",
		},
		[]string{"task"},
	)
	PollErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Number of poll ticks that returned an error or panicked",
		},
		[]string{"task"},
	)
	LogReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_reads_total",
			Help:      "Log file reads by result (ok, not_found, error)",
		},
		[]string{"result"},
	)
	LogLines = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "log_lines",
		Help:      "Total number of lines in the log file at the last read",
	})
	LogClears = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_clears_total",
			Help:      "Clear log requests by result (ok, error, busy)",
		},
		[]string{"result"},
	)
	ServiceRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_running",
			Help:      "1 when the managed service reported a running instance at the last poll",
		},
		[]string{"service"},
	)
	ConfigSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_saves_total",
			Help:      "Configuration form submissions by result (ok, invalid, error)",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(PollTicks, PollErrors, LogReads, LogLines, LogClears, ServiceRunning, ConfigSaves)
}

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
