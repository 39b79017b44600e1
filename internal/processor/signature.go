package processor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/analysis-worker/internal/plugin"
)

// SignatureRunner evaluates every signature plugin against the completed
// results mapping.
type SignatureRunner struct {
	entries []plugin.SignatureEntry
	settings
}

// NewSignatureRunner builds a runner over the given discovered signatures.
func NewSignatureRunner(entries []plugin.SignatureEntry, opts ...Option) *SignatureRunner {
	return &SignatureRunner{entries: entries, settings: newSettings(opts)}
}

// RunAll evaluates the signatures and returns one match per signature that
// matched, in discovery order. results must not be written to while RunAll
// is in progress; each signature receives its own deep copy.
func (r *SignatureRunner) RunAll(ctx context.Context, results plugin.Results) []plugin.Match {
	slots := make([]*plugin.Match, len(r.entries))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, e := range r.entries {
		if ctx.Err() != nil {
			break
		}
		i, e := i, e // per-iteration copies (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			slots[i] = r.runOne(ctx, e, results)
			return nil
		})
	}
	_ = g.Wait()

	var matches []plugin.Match
	for _, m := range slots {
		if m != nil {
			matches = append(matches, *m)
		}
	}
	return matches
}

type signatureOutcome struct {
	match    *plugin.Match
	disabled bool
}

func (r *SignatureRunner) runOne(ctx context.Context, e plugin.SignatureEntry, results plugin.Results) *plugin.Match {
	start := time.Now()

	out, err := guard(ctx, r.timeout, func(ctx context.Context) (signatureOutcome, error) {
		sig := e.New()
		if sig == nil {
			return signatureOutcome{}, errors.New("factory returned a nil signature")
		}
		if !sig.Meta().Enabled {
			return signatureOutcome{disabled: true}, nil
		}

		snapshot, err := Snapshot(results)
		if err != nil {
			return signatureOutcome{}, err
		}

		matched, err := sig.Run(ctx, snapshot)
		if err != nil || !matched {
			return signatureOutcome{}, err
		}
		m := plugin.NewMatch(sig)
		return signatureOutcome{match: &m}, nil
	})

	if err == nil && out.disabled {
		r.logger.Debug("signature disabled", zap.String("plugin", e.Name))
		r.metrics.ObservePlugin(string(plugin.FamilySignature), e.Name, "disabled", time.Since(start))
		return nil
	}
	if r.record(plugin.FamilySignature, e.Name, err, time.Since(start)) != plugin.FaultNone {
		return nil
	}
	if out.match != nil {
		r.metrics.ObserveMatch()
		r.logger.Debug("matched signature", zap.String("plugin", e.Name), zap.String("name", out.match.Name))
	}
	return out.match
}
