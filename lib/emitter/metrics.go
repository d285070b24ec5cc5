package emitter

import "github.com/VictoriaMetrics/metrics"

var (
	receivedTotal = metrics.GetOrCreateCounter("dmsg_emitter_received_total")
	sentTotal     = metrics.GetOrCreateCounter("dmsg_emitter_sent_total")
	ignoredTotal  = metrics.GetOrCreateCounter("dmsg_emitter_ignored_total")
	errorsTotal   = metrics.GetOrCreateCounter("dmsg_emitter_errors_total")
)
