package probetable

import "github.com/prometheus/client_golang/prometheus"

// StatsSource is what a StatsCollector reads. *Table satisfies it for any key
// and value type.
type StatsSource interface {
	Stats() Stats
	Strategy() Strategy
	Len() int
	Cap() int
	LoadFactor() float64
	MaxClusterLength() int
	AvgClusterLength() float64
}

// StatsCollector exports the counters of one table. Collecting reads the
// table, so it must not run concurrently with table mutations.
type StatsCollector struct {
	src StatsSource

	probes     *prometheus.Desc
	ops        *prometheus.Desc
	collisions *prometheus.Desc
	entries    *prometheus.Desc
	capacity   *prometheus.Desc
	loadFactor *prometheus.Desc
	maxCluster *prometheus.Desc
	avgCluster *prometheus.Desc
}

// NewStatsCollector makes a collector labelled with the table name and its
// probe strategy.
func NewStatsCollector(name string, src StatsSource) *StatsCollector {
	labels := prometheus.Labels{"table": name, "strategy": src.Strategy().String()}
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("probetable", "", metric), help, variable, labels)
	}
	return &StatsCollector{
		src:        src,
		probes:     desc("probes_total", "Slots examined, by operation.", "op"),
		ops:        desc("operations_total", "Operations, by operation. Inserts count new entries only.", "op"),
		collisions: desc("collisions_total", "Occupied or deleted slots passed over by inserts."),
		entries:    desc("entries", "Live entries."),
		capacity:   desc("capacity", "Number of slots."),
		loadFactor: desc("load_factor", "Live entries divided by capacity."),
		maxCluster: desc("max_cluster_length", "Longest run of occupied slots."),
		avgCluster: desc("avg_cluster_length", "Mean run of occupied slots."),
	}
}

// Describe sends the descriptors of every metric the collector exports,
// implementing prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.probes
	ch <- c.ops
	ch <- c.collisions
	ch <- c.entries
	ch <- c.capacity
	ch <- c.loadFactor
	ch <- c.maxCluster
	ch <- c.avgCluster
}

// Collect reads the table once per scrape and sends its counters and gauges
// as const metrics, implementing prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	ch <- prometheus.MustNewConstMetric(c.probes, prometheus.CounterValue, float64(s.InsertProbes), "insert")
	ch <- prometheus.MustNewConstMetric(c.probes, prometheus.CounterValue, float64(s.SearchProbes), "search")
	ch <- prometheus.MustNewConstMetric(c.probes, prometheus.CounterValue, float64(s.DeleteProbes), "delete")
	ch <- prometheus.MustNewConstMetric(c.ops, prometheus.CounterValue, float64(s.Inserts), "insert")
	ch <- prometheus.MustNewConstMetric(c.ops, prometheus.CounterValue, float64(s.Searches), "search")
	ch <- prometheus.MustNewConstMetric(c.ops, prometheus.CounterValue, float64(s.Deletes), "delete")
	ch <- prometheus.MustNewConstMetric(c.collisions, prometheus.CounterValue, float64(s.Collisions))

	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(c.src.Len()))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(c.src.Cap()))
	ch <- prometheus.MustNewConstMetric(c.loadFactor, prometheus.GaugeValue, c.src.LoadFactor())
	ch <- prometheus.MustNewConstMetric(c.maxCluster, prometheus.GaugeValue, float64(c.src.MaxClusterLength()))
	ch <- prometheus.MustNewConstMetric(c.avgCluster, prometheus.GaugeValue, c.src.AvgClusterLength())
}
