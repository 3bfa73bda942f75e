// Command probebench compares linear, quadratic and double hashing tables
// over random, sequential and clustered workloads, with and without
// automatic rehashing.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rip-create-your-account/probetable"
	"github.com/rip-create-your-account/probetable/internal/bench"
	"github.com/rip-create-your-account/probetable/internal/config"
	"github.com/rip-create-your-account/probetable/internal/logutil"
	"github.com/rip-create-your-account/probetable/internal/report"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	configPath  = flag.String("config", "", "config file path")
	sizesFlag   = flag.String("sizes", "", "space separated numbers of keys to test, e.g. \"1000 10000\"")
	outputDir   = flag.String("out", "", "directory for time.csv and clusters.csv")
	metricsAddr = flag.String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9191")
	seed        = flag.Uint64("seed", 0, "random seed, 0 picks one from the clock")
)

func main() {
	flag.Parse()

	conf, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.ErrorStack(err))
		os.Exit(2)
	}

	logger, err := logutil.NewLogger(&conf.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.ErrorStack(err))
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck

	if len(conf.Sizes) == 0 {
		conf.Sizes, err = promptSizes(os.Stdin, os.Stdout)
		if err != nil {
			logger.Fatal("read sizes", zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	if conf.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			err := http.ListenAndServe(conf.MetricsAddr, nil)
			logger.Error("metrics server stopped", zap.String("addr", conf.MetricsAddr), zap.Error(err))
		}()
	}

	if err := run(conf, logger, reg, os.Stdout); err != nil {
		logger.Fatal("benchmark failed", zap.Error(err))
	}
}

func loadConfig() (*config.Config, error) {
	conf := config.NewConfig()
	if *configPath != "" {
		if err := conf.Load(*configPath); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if *sizesFlag != "" {
		sizes, err := config.ParseSizes(*sizesFlag)
		if err != nil {
			return nil, errors.Trace(err)
		}
		conf.Sizes = sizes
	}
	if *outputDir != "" {
		conf.OutputDir = *outputDir
	}
	if *metricsAddr != "" {
		conf.MetricsAddr = *metricsAddr
	}
	if *seed != 0 {
		conf.Seed = *seed
	}
	return conf, errors.Trace(conf.Valid())
}

func promptSizes(in io.Reader, out io.Writer) ([]int, error) {
	fmt.Fprint(out, "Enter a list of the number of elements to test (space separated): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Trace(err)
	}
	sizes, err := config.ParseSizes(line)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(sizes) == 0 {
		return nil, errors.New("no sizes given")
	}
	return sizes, nil
}

// run benchmarks every size of conf, WITHOUT and then WITH rehashing, and
// appends the results to the CSV files in conf.OutputDir.
func run(conf *config.Config, logger *zap.Logger, reg prometheus.Registerer, out io.Writer) error {
	patterns, err := conf.ParsedPatterns()
	if err != nil {
		return errors.Trace(err)
	}
	strategies, err := conf.ParsedStrategies()
	if err != nil {
		return errors.Trace(err)
	}

	s := conf.Seed
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	r := rand.New(rand.NewSource(s))
	logger.Info("starting benchmark",
		zap.Ints("sizes", conf.Sizes),
		zap.Float64s("load-factors", conf.LoadFactors),
		zap.Float64("miss-rate", conf.MissRate),
		zap.Int("runs", conf.Runs),
		zap.Uint64("seed", s))

	runner := bench.NewRunner(conf.Runs, r, logger.Named("bench"))
	if err := reg.Register(runner.Collector()); err != nil {
		return errors.Trace(err)
	}
	layout := report.Layout{LoadFactors: conf.LoadFactors, Strategies: strategies}

	for si, m := range conf.Sizes {
		tableSizes := make([]int, len(conf.LoadFactors))
		keyLim := 0
		for i, lf := range conf.LoadFactors {
			tableSizes[i] = probetable.NextPrime(int(float64(m) / lf))
			if tableSizes[i]*10 > keyLim {
				keyLim = tableSizes[i] * 10
			}
			logger.Info("table size", zap.Int("keys", m), zap.Float64("load-factor", lf), zap.Int("slots", tableSizes[i]))
		}

		for _, rehash := range []bool{false, true} {
			for _, pattern := range patterns {
				kvs, err := pattern.Generate(r, m, keyLim)
				if err != nil {
					return errors.Trace(err)
				}
				w, err := bench.NewWorkload(r, kvs, conf.MissRate, keyLim)
				if err != nil {
					return errors.Trace(err)
				}

				c := report.Case{Pattern: pattern.String(), Rehash: rehash, Size: m}
				for i := range conf.LoadFactors {
					results := make([]bench.Result, 0, len(strategies))
					for _, strategy := range strategies {
						res, err := runOne(runner, logger, tableSizes[i], strategy, rehash, w)
						if err != nil {
							return errors.Trace(err)
						}
						if conf.MetricsAddr != "" {
							// si keeps repeated sizes apart
							name := fmt.Sprintf("%s/%v/%d.%d/LF%d", pattern, rehash, si, m, i+1)
							if err := reg.Register(probetable.NewStatsCollector(name, res.Table)); err != nil {
								return errors.Trace(err)
							}
						}
						results = append(results, res)
					}
					c.Results = append(c.Results, results)
				}

				if err := layout.WriteSummary(out, c); err != nil {
					return errors.Trace(err)
				}
				if err := layout.Append(conf.OutputDir, c); err != nil {
					return errors.Trace(err)
				}
			}
		}
		logger.Info("finished test size", zap.Int("keys", m))
	}

	logger.Info("benchmark completed",
		zap.String("times", report.TimesFile),
		zap.String("clusters", report.ClustersFile),
		zap.String("dir", conf.OutputDir))
	return nil
}

func runOne(runner *bench.Runner, logger *zap.Logger, size int, strategy probetable.Strategy, rehash bool, w *bench.Workload) (bench.Result, error) {
	table, err := probetable.New[int, int](size, strategy,
		probetable.WithAutoRehash(rehash),
		probetable.WithLogger(logger.Named("table")))
	if err != nil {
		return bench.Result{}, errors.Trace(err)
	}

	res, err := runner.Run(table, w)
	if err != nil {
		return bench.Result{}, errors.Trace(err)
	}
	logger.Debug("table done",
		zap.Stringer("strategy", strategy),
		zap.Bool("rehash", rehash),
		zap.Int("slots", size),
		zap.Duration("insert", res.InsertTime),
		zap.Float64("avg-hit-probes", res.AvgHit),
		zap.Float64("avg-miss-probes", res.AvgMiss),
		zap.Int64("collisions", res.Stats.Collisions))
	return res, nil
}
