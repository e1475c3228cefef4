// Package check drives a run over the provider catalog: it selects the
// providers to check, probes each declared server and tallies failures.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/shineum/providerdb-check/internal/provider"
)

// excluded lists catalog entries that are never probed: example.com is a
// documentation fixture and Yggmail does not run on a public host.
var excluded = map[string]bool{
	"example.com": true,
	"Yggmail":     true,
}

// Prober is the interface for probing one server endpoint.
type Prober interface {
	Probe(ctx context.Context, srv provider.ServerSpec) error
}

// Config holds the selection options of a run.
type Config struct {
	// Path is the root of the provider catalog.
	Path string

	// Name restricts the run to providers whose name contains it. A
	// non-empty Name also makes any probe failure fatal.
	Name string
}

// Summary holds the totals of a run.
type Summary struct {
	Providers int // records loaded
	Checked   int // records selected for probing
	Probed    int
	Failed    int
}

// Runner runs the catalog check.
type Runner struct {
	config   Config
	prober   Prober
	reporter *Reporter
}

// New creates a Runner.
func New(cfg Config, prober Prober, reporter *Reporter) *Runner {
	return &Runner{
		config:   cfg,
		prober:   prober,
		reporter: reporter,
	}
}

// Run loads the catalog from the configured path and checks it. Load
// failures are returned without probing anything.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	providers, err := provider.Load(r.config.Path)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load providers: %w", err)
	}
	return r.Check(ctx, providers)
}

// Check probes every smtp and imap server of the selected providers in
// order. Failures are reported and counted. When a Name filter is set the
// first failure ends the run and is returned. Cancelling ctx ends the run
// with an error wrapping ctx.Err().
func (r *Runner) Check(ctx context.Context, providers []*provider.Provider) (Summary, error) {
	sum := Summary{Providers: len(providers)}

	for _, p := range providers {
		if err := ctx.Err(); err != nil {
			return sum, interrupted(err)
		}
		if reason := r.skipReason(p); reason != "" {
			slog.Debug("skipping provider", "name", p.Name, "path", p.Path, "reason", reason)
			continue
		}
		sum.Checked++

		for _, srv := range p.Servers {
			if srv.Type != provider.TypeSMTP && srv.Type != provider.TypeIMAP {
				continue
			}
			if err := ctx.Err(); err != nil {
				return sum, interrupted(err)
			}

			r.reporter.Testing(srv)
			sum.Probed++

			err := r.prober.Probe(ctx, srv)
			if err == nil {
				continue
			}
			// Failures caused by cancellation are not reported.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sum, interrupted(ctxErr)
			}

			r.reporter.Failure(srv, err)
			sum.Failed++
			if r.config.Name != "" {
				return sum, fmt.Errorf("provider %q: %w", p.Name, err)
			}
		}
	}

	slog.Info("catalog check finished",
		"providers", sum.Providers,
		"checked", sum.Checked,
		"probed", sum.Probed,
		"failed", sum.Failed,
	)
	return sum, nil
}

func (r *Runner) skipReason(p *provider.Provider) string {
	switch {
	case !p.HasServers:
		return "no servers"
	case excluded[p.Name]:
		return "excluded"
	case !matchName(p.Name, r.config.Name):
		return "name filter"
	}
	return ""
}

// matchName reports whether filter is a substring of name, comparing the
// NFC forms of both.
func matchName(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(norm.NFC.String(name), norm.NFC.String(filter))
}

func interrupted(err error) error {
	return fmt.Errorf("check interrupted: %w", err)
}
