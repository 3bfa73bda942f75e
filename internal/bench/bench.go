// Package bench times insert, search and erase phases against probing tables
// and gathers the probe statistics of each phase.
package bench

import (
	"math"
	"time"

	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rip-create-your-account/probetable"
	"github.com/rip-create-your-account/probetable/internal/gen"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// Phase labels of the latency histogram.
const (
	PhaseInsert = "insert"
	PhaseHit    = "search_hit"
	PhaseMiss   = "search_miss"
	PhaseDelete = "delete"
	PhaseRefill = "insert_after_delete"
)

// Workload is one data set plus the hit/miss/delete selections made from it.
// Hit and Del index into KVs, Miss holds keys that are not in KVs.
type Workload struct {
	KVs  []gen.KV
	Hit  []int
	Miss []int
	Del  []int
}

// NewWorkload splits len(kvs) searches into hits and misses by missRate and
// picks a random deletion order over all pairs. Miss keys come from
// [1, keyLim].
func NewWorkload(r *rand.Rand, kvs []gen.KV, missRate float64, keyLim int) (*Workload, error) {
	if missRate < 0 || missRate > 1 {
		return nil, errors.Errorf("miss rate %v out of [0, 1]", missRate)
	}
	m := len(kvs)
	numMiss := int(math.Round(float64(m) * missRate))
	numHit := m - numMiss

	idx := r.Perm(m)
	miss, err := gen.MissKeys(r, numMiss, gen.Keys(kvs), keyLim)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Workload{
		KVs:  kvs,
		Hit:  idx[:numHit],
		Miss: miss,
		Del:  r.Perm(m),
	}, nil
}

// Result holds the averages over all runs of one table configuration.
// Cluster lengths and Stats come from the first run.
type Result struct {
	Strategy probetable.Strategy

	InsertTime time.Duration
	SearchTime time.Duration // hits and misses
	DeleteTime time.Duration

	AvgHit               float64 // probes per search hit
	AvgMiss              float64 // probes per search miss
	AvgInsertAfterDelete float64 // probes per insert of an erased key

	MaxCluster int
	AvgCluster float64

	FailedInserts int
	Stats         probetable.Stats

	// Table is the first run's table after all phases.
	Table *probetable.Table[int, int]
}

// Runner runs workloads against tables. Not safe for concurrent use.
type Runner struct {
	runs   int
	rand   *rand.Rand
	logger *zap.Logger
	phases *prometheus.HistogramVec
}

func NewRunner(runs int, r *rand.Rand, logger *zap.Logger) *Runner {
	if runs <= 0 {
		runs = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		runs:   runs,
		rand:   r,
		logger: logger,
		phases: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "probetable",
				Subsystem: "bench",
				Name:      "phase_duration_seconds",
				Help:      "Bucketed histogram of the duration of one benchmark phase.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 22), // 10us ~ 21s
			}, []string{"phase", "strategy"}),
	}
}

// Collector returns the phase latency histogram for registration.
func (r *Runner) Collector() prometheus.Collector {
	return r.phases
}

func (r *Runner) observe(phase string, s probetable.Strategy, d time.Duration) {
	r.phases.WithLabelValues(phase, s.String()).Observe(d.Seconds())
}

// Run clones table once per run and replays w against the clone: insert all
// pairs, search the hits, search the misses, erase, then insert the erased
// keys again with fresh values.
func (r *Runner) Run(table *probetable.Table[int, int], w *Workload) (Result, error) {
	for _, i := range append(append([]int(nil), w.Hit...), w.Del...) {
		if i < 0 || i >= len(w.KVs) {
			return Result{}, errors.Errorf("workload index %d out of range [0, %d)", i, len(w.KVs))
		}
	}

	strategy := table.Strategy()
	res := Result{Strategy: strategy}

	var tIns, tSearch, tDel time.Duration
	var probeHit, probeMiss, probeRefill int64
	var nRefill int

	for run := 0; run < r.runs; run++ {
		t := table.Clone()

		start := time.Now()
		for _, kv := range w.KVs {
			if _, err := t.Insert(kv.Key, kv.Value); err != nil {
				res.FailedInserts++
			}
		}
		d := time.Since(start)
		tIns += d
		r.observe(PhaseInsert, strategy, d)

		if run == 0 {
			res.MaxCluster = t.MaxClusterLength()
			res.AvgCluster = t.AvgClusterLength()
		}

		before := t.Stats()
		start = time.Now()
		for _, i := range w.Hit {
			t.Search(w.KVs[i].Key)
		}
		d = time.Since(start)
		tSearch += d
		r.observe(PhaseHit, strategy, d)
		probeHit += t.Stats().Sub(before).SearchProbes

		before = t.Stats()
		start = time.Now()
		for _, k := range w.Miss {
			t.Search(k)
		}
		d = time.Since(start)
		tSearch += d
		r.observe(PhaseMiss, strategy, d)
		probeMiss += t.Stats().Sub(before).SearchProbes

		start = time.Now()
		for _, i := range w.Del {
			t.Erase(w.KVs[i].Key)
		}
		d = time.Since(start)
		tDel += d
		r.observe(PhaseDelete, strategy, d)

		before = t.Stats()
		start = time.Now()
		for _, i := range w.Del {
			if _, err := t.Insert(w.KVs[i].Key, 1+r.rand.Intn(gen.MaxValue)); err != nil {
				res.FailedInserts++
			}
			nRefill++
		}
		r.observe(PhaseRefill, strategy, time.Since(start))
		probeRefill += t.Stats().Sub(before).InsertProbes

		if run == 0 {
			res.Stats = t.Stats()
			res.Table = t
		}
	}

	if res.FailedInserts > 0 {
		r.logger.Warn("inserts failed, table ran out of reachable slots",
			zap.Stringer("strategy", strategy),
			zap.Int("capacity", table.Cap()),
			zap.Bool("auto-rehash", table.AutoRehash()),
			zap.Int("failed", res.FailedInserts))
	}

	runs := time.Duration(r.runs)
	res.InsertTime = tIns / runs
	res.SearchTime = tSearch / runs
	res.DeleteTime = tDel / runs
	res.AvgHit = ratio(probeHit, len(w.Hit)*r.runs)
	res.AvgMiss = ratio(probeMiss, len(w.Miss)*r.runs)
	res.AvgInsertAfterDelete = ratio(probeRefill, nRefill)
	return res, nil
}

func ratio(sum int64, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
