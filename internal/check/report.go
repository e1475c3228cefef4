package check

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/shineum/providerdb-check/internal/probe"
	"github.com/shineum/providerdb-check/internal/provider"
)

// Reporter writes the human-readable progress and error lines of a run.
type Reporter struct {
	writer io.Writer
	quiet  bool
	errTag *color.Color
}

// NewReporter creates a Reporter writing to w.
func NewReporter(w io.Writer, quiet, noColor bool) *Reporter {
	tag := color.New(color.FgRed, color.Bold)
	if noColor {
		tag.DisableColor()
	}
	return &Reporter{writer: w, quiet: quiet, errTag: tag}
}

// Testing announces a probe. Suppressed when quiet.
func (r *Reporter) Testing(srv provider.ServerSpec) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.writer, "testing %s\n", srv.Address())
}

// Failure prints one error line for a failed probe, even when quiet:
//
//	[error] host:port 	Kind: message
func (r *Reporter) Failure(srv provider.ServerSpec, err error) {
	kind, msg := describe(err)
	fmt.Fprintf(r.writer, "%s %s \t%s: %s\n", r.errTag.Sprint("[error]"), srv.Address(), kind, msg)
}

// Summary prints the totals of a completed run. Suppressed when quiet.
func (r *Reporter) Summary(s Summary) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.writer, "%d providers checked, %d servers probed, %d failed\n", s.Checked, s.Probed, s.Failed)
}

func describe(err error) (string, string) {
	var perr *probe.Error
	if errors.As(err, &perr) {
		return perr.Kind.String(), perr.Err.Error()
	}
	return "Error", err.Error()
}
