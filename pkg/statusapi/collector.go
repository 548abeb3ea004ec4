package statusapi

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// workerCollector is a prometheus.Collector that reads worker.Stats
// through statsFn on every scrape rather than keeping its own gauges in
// sync.
type workerCollector struct {
	statsFn StatsFunc

	packetsCaptured       *prometheus.Desc
	packetsProcessed      *prometheus.Desc
	totalL4DataLen        *prometheus.Desc
	detectedFlowProtocols *prometheus.Desc
	activeFlows           *prometheus.Desc
	errorOrEOF            *prometheus.Desc
}

func newWorkerCollector(statsFn StatsFunc) *workerCollector {
	labels := []string{"thread_id"}
	return &workerCollector{
		statsFn: statsFn,
		packetsCaptured: prometheus.NewDesc(
			"ndpid_worker_packets_captured_total", "Packets captured by this worker.", labels, nil),
		packetsProcessed: prometheus.NewDesc(
			"ndpid_worker_packets_processed_total", "Packets owned and processed by this worker.", labels, nil),
		totalL4DataLen: prometheus.NewDesc(
			"ndpid_worker_l4_data_len_total", "Total L4 payload bytes processed by this worker.", labels, nil),
		detectedFlowProtocols: prometheus.NewDesc(
			"ndpid_worker_detected_flow_protocols_total", "Flows for which DPI completed on this worker.", labels, nil),
		activeFlows: prometheus.NewDesc(
			"ndpid_worker_active_flows", "Flows currently tracked by this worker.", labels, nil),
		errorOrEOF: prometheus.NewDesc(
			"ndpid_worker_error_or_eof", "1 if this worker's capture loop has stopped.", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *workerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetsCaptured
	ch <- c.packetsProcessed
	ch <- c.totalL4DataLen
	ch <- c.detectedFlowProtocols
	ch <- c.activeFlows
	ch <- c.errorOrEOF
}

// Collect implements prometheus.Collector.
func (c *workerCollector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.statsFn() {
		label := strconv.Itoa(st.ThreadID)
		ch <- prometheus.MustNewConstMetric(c.packetsCaptured, prometheus.CounterValue, float64(st.PacketsCaptured), label)
		ch <- prometheus.MustNewConstMetric(c.packetsProcessed, prometheus.CounterValue, float64(st.PacketsProcessed), label)
		ch <- prometheus.MustNewConstMetric(c.totalL4DataLen, prometheus.CounterValue, float64(st.TotalL4DataLen), label)
		ch <- prometheus.MustNewConstMetric(c.detectedFlowProtocols, prometheus.CounterValue, float64(st.DetectedFlowProtocols), label)
		ch <- prometheus.MustNewConstMetric(c.activeFlows, prometheus.GaugeValue, float64(st.ActiveFlows), label)
		ch <- prometheus.MustNewConstMetric(c.errorOrEOF, prometheus.GaugeValue, boolToFloat(st.ErrorOrEOF), label)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
