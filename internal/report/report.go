package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/crossrun/internal/result"
)

type Failure struct {
	Sample     string        `json:"sample"`
	Backend    string        `json:"backend"`
	Reason     result.Reason `json:"reason"`
	Diagnostic string        `json:"diagnostic,omitempty"`
}

type BackendSummary struct {
	Backend  string  `json:"backend"`
	Samples  int     `json:"samples"`
	Passed   int     `json:"passed"`
	PassRate float64 `json:"pass_rate"`
}

type Report struct {
	Outcomes []result.Outcome `json:"outcomes"`
	Failures []Failure        `json:"failures"`
	Backends []BackendSummary `json:"backends"`
	Passed   bool             `json:"passed"`
}

// ExitCode is 0 when every outcome passed and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Passed {
		return 0
	}
	return 1
}

type key struct{ sample, backend string }

// Aggregator collects outcomes in the order they are recorded. Each
// (sample, backend) pair may be recorded once.
type Aggregator struct {
	outcomes []result.Outcome
	seen     map[key]bool
}

func NewAggregator() *Aggregator {
	return &Aggregator{seen: map[key]bool{}}
}

func (a *Aggregator) Record(o result.Outcome) error {
	k := key{o.Sample, o.Backend}
	if a.seen[k] {
		return fmt.Errorf("outcome for %s on %s already recorded", o.Sample, o.Backend)
	}
	a.seen[k] = true
	a.outcomes = append(a.outcomes, o)
	return nil
}

func (a *Aggregator) Len() int { return len(a.outcomes) }

// Finalize builds the report. Overall success is the conjunction of every
// recorded outcome; an empty run passes.
func (a *Aggregator) Finalize() *Report {
	r := &Report{
		Outcomes: append([]result.Outcome(nil), a.outcomes...),
		Failures: []Failure{},
		Passed:   true,
	}
	byBackend := map[string]*BackendSummary{}
	var backends []string
	for _, o := range a.outcomes {
		s, ok := byBackend[o.Backend]
		if !ok {
			s = &BackendSummary{Backend: o.Backend}
			byBackend[o.Backend] = s
			backends = append(backends, o.Backend)
		}
		s.Samples++
		if o.Success {
			s.Passed++
			continue
		}
		r.Passed = false
		r.Failures = append(r.Failures, Failure{
			Sample:     o.Sample,
			Backend:    o.Backend,
			Reason:     o.Reason,
			Diagnostic: o.Diagnostic,
		})
	}
	for _, b := range backends {
		s := byBackend[b]
		s.PassRate = float64(s.Passed) / float64(s.Samples)
		r.Backends = append(r.Backends, *s)
	}
	return r
}

// CheckFormat reports whether Write understands format.
func CheckFormat(format string) error {
	switch format {
	case "table", "markdown", "json", "":
		return nil
	}
	return fmt.Errorf("unknown report format %q (want table, markdown or json)", format)
}

// Write renders r as a table, markdown or json.
func Write(r *Report, format string, w io.Writer) error {
	if err := CheckFormat(format); err != nil {
		return err
	}
	switch format {
	case "markdown":
		return writeMarkdown(r, w)
	case "json":
		return writeJSON(r, w)
	default:
		return writeTable(r, w)
	}
}

func writeTable(r *Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BACKEND\tSAMPLES\tPASSED\tPASS RATE")
	fmt.Fprintln(tw, strings.Repeat("-", 50))
	for _, s := range r.Backends {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\n", s.Backend, s.Samples, s.Passed, s.PassRate*100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w, strings.Repeat("=", 50))
	if r.Passed {
		fmt.Fprintln(w, "All Tests Passed")
		return nil
	}
	fmt.Fprintln(w, "Some Tests Failed")
	fmt.Fprintln(w, "\nFailures:")
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s [%s]: %s\n", f.Sample, f.Backend, f.Reason.Text())
	}
	return nil
}

func writeMarkdown(r *Report, w io.Writer) error {
	fmt.Fprintln(w, "| Backend | Samples | Passed | Pass Rate |")
	fmt.Fprintln(w, "|---|---|---|---|")
	for _, s := range r.Backends {
		fmt.Fprintf(w, "| %s | %d | %d | %.0f%% |\n", s.Backend, s.Samples, s.Passed, s.PassRate*100)
	}
	if len(r.Failures) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\n| Sample | Backend | Reason |")
	fmt.Fprintln(w, "|---|---|---|")
	for _, f := range r.Failures {
		fmt.Fprintf(w, "| %s | %s | %s |\n", f.Sample, f.Backend, f.Reason)
	}
	return nil
}

func writeJSON(r *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
