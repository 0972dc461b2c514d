package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Proton-105/blackjack-tracker/internal/state"
)

var conversationsDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "bot", "conversations"),
	"Conversations in progress by step.",
	[]string{"state"}, nil,
)

// steps are always exported, with 0 when nobody is in them.
var steps = []state.State{
	state.StateLoginUsername,
	state.StateLoginPassword,
	state.StateRegisterUsername,
	state.StateRegisterPassword,
	state.StateRegisterConfirm,
	state.StateTicketPrice,
	state.StateTicketGames,
	state.StateTicketReview,
}

// ConversationCollector reads the active conversations on every scrape.
type ConversationCollector struct {
	fsm     state.StateMachine
	timeout time.Duration
	log     *slog.Logger
}

func NewConversationCollector(fsm state.StateMachine, log *slog.Logger) *ConversationCollector {
	if log == nil {
		log = slog.Default()
	}
	return &ConversationCollector{fsm: fsm, timeout: 5 * time.Second, log: log}
}

func (c *ConversationCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- conversationsDesc
}

func (c *ConversationCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	active, err := c.fsm.Active(ctx)
	if err != nil {
		c.log.Warn("failed to list conversations", slog.Any("error", err))
		ch <- prometheus.NewInvalidMetric(conversationsDesc, err)
		return
	}

	counts := make(map[state.State]int, len(steps))
	for _, s := range steps {
		counts[s] = 0
	}
	for _, st := range active {
		counts[st.CurrentState]++
	}

	for s, n := range counts {
		ch <- prometheus.MustNewConstMetric(conversationsDesc, prometheus.GaugeValue, float64(n), string(s))
	}
}
