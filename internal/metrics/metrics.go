package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mudbot_lines_received_total",
		Help: "Total number of lines read from the remote session.",
	})

	UserLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudbot_user_lines_total",
		Help: "Total number of user input lines, labelled by how they were handled.",
	}, []string{"kind"})

	RulesFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudbot_rules_fired_total",
		Help: "Total number of reactive rule firings, labelled by trigger set.",
	}, []string{"set"})

	CommandsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudbot_commands_dispatched_total",
		Help: "Total number of dispatched user commands, labelled by whether any rule matched.",
	}, []string{"matched"})

	MessagesEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudbot_messages_emitted_total",
		Help: "Total number of messages sent to the remote, labelled by source.",
	}, []string{"source"})

	TasksScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudbot_tasks_scheduled_total",
		Help: "Total number of delayed-output requests, labelled by outcome.",
	}, []string{"outcome"})

	TasksPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mudbot_tasks_pending",
		Help: "Current number of pending delayed messages.",
	})

	PackLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mudbot_pack_loads_total",
		Help: "Total number of trigger pack loads, labelled by status.",
	}, []string{"status"})

	RulesQuarantined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mudbot_rules_quarantined_total",
		Help: "Total number of rules rejected at load time.",
	})

	SetsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mudbot_trigger_sets_active",
		Help: "Current number of loaded trigger sets.",
	})

	LineProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mudbot_line_processing_duration_ms",
		Help:    "Time spent matching and executing rules for one line, in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
	})
)
