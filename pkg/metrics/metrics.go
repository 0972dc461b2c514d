// Package metrics exposes the Prometheus instruments shared by the API server and the bot.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blackjack"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Served API requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	tickets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_total",
		Help:      "Submitted tickets by price.",
	}, []string{"price"})

	games = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_total",
		Help:      "Recorded games by result.",
	}, []string{"result"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Register and login attempts by outcome.",
	}, []string{"event", "outcome"})

	botUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bot",
		Name:      "updates_total",
		Help:      "Handled Telegram updates by command and status.",
	}, []string{"command", "status"})

	botLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "bot",
		Name:      "update_duration_seconds",
		Help:      "Time spent handling one Telegram update.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"command"})

	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bot",
		Name:      "conversation_transitions_total",
		Help:      "Conversation steps taken.",
	}, []string{"from", "to"})

	appErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Handled errors by code and severity.",
	}, []string{"code", "severity"})
)

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// RecordHTTPRequest counts a served request. route is the matched pattern, not the raw path.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordTicket(price int64, played, wins int) {
	tickets.WithLabelValues(strconv.FormatInt(price, 10)).Inc()
	games.WithLabelValues("win").Add(float64(wins))
	games.WithLabelValues("loss").Add(float64(played - wins))
}

func RecordAuth(event string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	authAttempts.WithLabelValues(event, outcome).Inc()
}

func RecordCommand(command, status string, duration time.Duration) {
	command = orUnknown(command)
	botUpdates.WithLabelValues(command, orUnknown(status)).Inc()
	botLatency.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition matches the hook signature of state.RegisterTransitionRecorder.
func RecordStateTransition(from, to string) {
	transitions.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

func RecordError(code, severity string) {
	appErrors.WithLabelValues(orUnknown(code), orUnknown(severity)).Inc()
}
