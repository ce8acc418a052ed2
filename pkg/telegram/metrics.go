package telegram

import (
	"github.com/luisgil43/finanzasbot/pkg/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Telegram bot metrics
var (
	commandsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_processed_total",
			Help: "Total number of processed commands by type",
		},
		[]string{"command"}, // start, help, delete, movements, summary, loans
	)

	messagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_messages_processed_total",
			Help: "Total number of processed messages by type",
		},
		[]string{"type"}, // text, media
	)

	transactionsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_transactions_committed_total",
			Help: "Total number of committed transactions by kind",
		},
		[]string{"kind"}, // expense, income
	)

	loansCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_loans_created_total",
			Help: "Total number of loans created",
		},
	)

	categoriesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_categories_created_total",
			Help: "Total number of budget categories created",
		},
	)

	duplicateCommits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_duplicate_commits_total",
			Help: "Total number of redelivered messages resolved by the idempotency key",
		},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"}, // database, send, ocr, download_file
	)

	ocrDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telegram_ocr_duration_seconds",
			Help:    "Duration of receipt OCR in seconds",
			Buckets: []float64{0.5, 1.5, 2.5, 5, 10},
		},
	)
)

// RestoreCounters re-seeds the counters from a snapshot taken off the
// Prometheus server, so counter totals survive a restart.
func RestoreCounters(s *services.MetricsSnapshot) {
	if s == nil {
		return
	}
	for label, v := range s.CommandsProcessed {
		commandsProcessed.WithLabelValues(label).Add(v)
	}
	for label, v := range s.MessagesProcessed {
		messagesProcessed.WithLabelValues(label).Add(v)
	}
	for label, v := range s.TransactionsCommitted {
		transactionsCommitted.WithLabelValues(label).Add(v)
	}
	for label, v := range s.ErrorsTotal {
		errorsTotal.WithLabelValues(label).Add(v)
	}
}
