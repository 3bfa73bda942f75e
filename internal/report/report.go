// Package report writes benchmark results as appendable CSV files and as
// aligned text tables.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pingcap/errors"
	"github.com/rip-create-your-account/probetable"
	"github.com/rip-create-your-account/probetable/internal/bench"
)

const (
	TimesFile    = "time.csv"
	ClustersFile = "clusters.csv"
)

// Case is one pattern/rehash/size combination. Results is indexed by load
// factor first and strategy second, in the order of the Layout.
type Case struct {
	Pattern string
	Rehash  bool
	Size    int
	Results [][]bench.Result
}

// Layout fixes the column order shared by every case of a report.
type Layout struct {
	LoadFactors []float64
	Strategies  []probetable.Strategy
}

func (l Layout) check(c Case) error {
	if len(c.Results) != len(l.LoadFactors) {
		return errors.Errorf("case has %d load factors, layout %d", len(c.Results), len(l.LoadFactors))
	}
	for _, rs := range c.Results {
		if len(rs) != len(l.Strategies) {
			return errors.Errorf("case has %d strategies, layout %d", len(rs), len(l.Strategies))
		}
	}
	return nil
}

// Abbrev is the column suffix of a strategy.
func Abbrev(s probetable.Strategy) string {
	switch s {
	case probetable.Linear:
		return "LH"
	case probetable.Quadratic:
		return "QH"
	case probetable.Double:
		return "DH"
	}
	return s.String()
}

func rehashLabel(on bool) string {
	if on {
		return "WITH"
	}
	return "WITHOUT"
}

func lfLabel(i int) string {
	return "LF" + strconv.Itoa(i+1)
}

func micros(d time.Duration) string {
	return strconv.FormatInt(d.Microseconds(), 10)
}

func float(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// TimesHeader is the header row of time.csv.
func (l Layout) TimesHeader() []string {
	header := []string{"Pattern", "Rehash", "TestSize"}
	for _, metric := range []string{"Ins", "Search", "Del"} {
		for i := range l.LoadFactors {
			for _, s := range l.Strategies {
				header = append(header, fmt.Sprintf("%s%s_%s", metric, lfLabel(i), Abbrev(s)))
			}
		}
	}
	return header
}

// TimesRow is the time.csv row of c, times in microseconds.
func (l Layout) TimesRow(c Case) []string {
	row := []string{c.Pattern, rehashLabel(c.Rehash), strconv.Itoa(c.Size)}
	metrics := []func(bench.Result) time.Duration{
		func(r bench.Result) time.Duration { return r.InsertTime },
		func(r bench.Result) time.Duration { return r.SearchTime },
		func(r bench.Result) time.Duration { return r.DeleteTime },
	}
	for _, metric := range metrics {
		for i := range c.Results {
			for _, r := range c.Results[i] {
				row = append(row, micros(metric(r)))
			}
		}
	}
	return row
}

// ClustersHeader is the header row of clusters.csv.
func (l Layout) ClustersHeader() []string {
	header := []string{"Pattern", "Rehash", "TestSize", "Label"}
	for _, s := range l.Strategies {
		header = append(header, "Max_"+Abbrev(s))
	}
	for _, s := range l.Strategies {
		header = append(header, "Avg_"+Abbrev(s))
	}
	return header
}

// ClustersRows are the clusters.csv rows of c, one per load factor.
func (l Layout) ClustersRows(c Case) [][]string {
	rows := make([][]string, 0, len(c.Results))
	for i, rs := range c.Results {
		row := []string{c.Pattern, rehashLabel(c.Rehash), strconv.Itoa(c.Size), lfLabel(i)}
		for _, r := range rs {
			row = append(row, strconv.Itoa(r.MaxCluster))
		}
		for _, r := range rs {
			row = append(row, float(r.AvgCluster))
		}
		rows = append(rows, row)
	}
	return rows
}

// Append adds c to time.csv and clusters.csv under dir. A header is written
// when a file is new or empty.
func (l Layout) Append(dir string, c Case) error {
	if err := l.check(c); err != nil {
		return errors.Trace(err)
	}
	if err := appendCSV(filepath.Join(dir, TimesFile), l.TimesHeader(), [][]string{l.TimesRow(c)}); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(appendCSV(filepath.Join(dir, ClustersFile), l.ClustersHeader(), l.ClustersRows(c)))
}

func appendCSV(path string, header []string, rows [][]string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Trace(cerr)
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return errors.Trace(err)
	}

	w := csv.NewWriter(f)
	if fi.Size() == 0 {
		if err := w.Write(header); err != nil {
			return errors.Trace(err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// WriteSummary prints the timing, probe and cluster tables of c.
func (l Layout) WriteSummary(out io.Writer, c Case) error {
	if err := l.check(c); err != nil {
		return errors.Trace(err)
	}

	tw := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	header := func(title string) {
		fmt.Fprintf(tw, "\n%s\n", title)
		fmt.Fprint(tw, "\t")
		for _, s := range l.Strategies {
			fmt.Fprintf(tw, "%s\t", s)
		}
		fmt.Fprintln(tw)
	}
	line := func(label string, rs []bench.Result, cell func(bench.Result) string) {
		fmt.Fprintf(tw, "%s\t", label)
		for _, r := range rs {
			fmt.Fprintf(tw, "%s\t", cell(r))
		}
		fmt.Fprintln(tw)
	}

	for i, rs := range c.Results {
		header(fmt.Sprintf("===== CLUSTER LENGTH %s %s REHASH, %d KEYS, %s (%v) =====",
			c.Pattern, rehashLabel(c.Rehash), c.Size, lfLabel(i), l.LoadFactors[i]))
		line("[Max cluster length]", rs, func(r bench.Result) string { return strconv.Itoa(r.MaxCluster) })
		line("[Avg cluster length]", rs, func(r bench.Result) string { return float(r.AvgCluster) })
	}

	header("===== PERFORMANCE (us) =====")
	for i, rs := range c.Results {
		line("[Insert Time] "+lfLabel(i), rs, func(r bench.Result) string { return micros(r.InsertTime) })
	}
	for i, rs := range c.Results {
		line("[Search Time] "+lfLabel(i), rs, func(r bench.Result) string { return micros(r.SearchTime) })
	}
	for i, rs := range c.Results {
		line("[Delete Time] "+lfLabel(i), rs, func(r bench.Result) string { return micros(r.DeleteTime) })
	}

	header("----- PROBES (avg per operation) -----")
	for i, rs := range c.Results {
		line("[Search HIT] "+lfLabel(i), rs, func(r bench.Result) string { return float(r.AvgHit) })
		line("[Search MISS] "+lfLabel(i), rs, func(r bench.Result) string { return float(r.AvgMiss) })
		line("[Insert after delete] "+lfLabel(i), rs, func(r bench.Result) string { return float(r.AvgInsertAfterDelete) })
		line("[Failed inserts] "+lfLabel(i), rs, func(r bench.Result) string { return strconv.Itoa(r.FailedInserts) })
	}

	return errors.Trace(tw.Flush())
}
