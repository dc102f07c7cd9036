// Package access decides whether the current session may use a screen or action.
//
// Every gate in the console goes through check: the route guard, UI elements that hide
// themselves, and the JSON session API. Decisions are computed from the token alone,
// without I/O, and fail closed on anything unexpected.
package access

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"

	"steward/internal/rights"
	"steward/internal/token"
)

// Decision is the outcome of an access check.
type Decision int

const (
	Allow Decision = iota
	NoSession
	MalformedToken
	UnknownCapability
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case NoSession:
		return "no_session"
	case MalformedToken:
		return "malformed_token"
	case UnknownCapability:
		return "unknown_capability"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Allowed reports whether d grants access.
func (d Decision) Allowed() bool {
	return d == Allow
}

// maxReported bounds the set of malformed-token fingerprints remembered for log dedupe.
const maxReported = 1024

// Evaluator is the single decision point for "may this session do X".
type Evaluator struct {
	decoder *token.Decoder
	logger  *slog.Logger

	reported      sync.Map
	reportedCount atomic.Int64
}

func NewEvaluator(decoder *token.Decoder, logger *slog.Logger) *Evaluator {
	return &Evaluator{decoder: decoder, logger: logger}
}

// Evaluate decides whether raw grants required. An empty required capability only
// needs a decodable token.
func (e *Evaluator) Evaluate(ctx context.Context, raw string, required rights.ID) Decision {
	if raw == "" {
		return NoSession
	}
	claims, err := e.decoder.Decode(raw)
	if err != nil {
		e.reportMalformed(ctx, raw, err)
		return MalformedToken
	}
	return e.check(ctx, rights.NewSet(claims.Rights), required)
}

// HasCapability reports whether raw grants required.
func (e *Evaluator) HasCapability(ctx context.Context, raw string, required rights.ID) bool {
	return e.Evaluate(ctx, raw, required).Allowed()
}

// Inspect decodes raw once for reuse across several checks in the same request.
func (e *Evaluator) Inspect(ctx context.Context, raw string) (*Viewer, Decision) {
	if raw == "" {
		return nil, NoSession
	}
	claims, err := e.decoder.Decode(raw)
	if err != nil {
		e.reportMalformed(ctx, raw, err)
		return nil, MalformedToken
	}
	return &Viewer{
		Claims: claims,
		rights: rights.NewSet(claims.Rights),
		eval:   e,
	}, Allow
}

func (e *Evaluator) check(ctx context.Context, granted rights.Set, required rights.ID) Decision {
	if required == "" {
		return Allow
	}
	if !rights.Known(required) {
		e.logger.ErrorContext(ctx, "access check references undeclared capability",
			"capability", string(required),
		)
		return UnknownCapability
	}
	if granted.Has(required) {
		return Allow
	}
	return Forbidden
}

func (e *Evaluator) reportMalformed(ctx context.Context, raw string, err error) {
	sum := sha256.Sum256([]byte(raw))
	fp := hex.EncodeToString(sum[:8])
	if _, seen := e.reported.LoadOrStore(fp, struct{}{}); seen {
		return
	}
	if e.reportedCount.Add(1) > maxReported {
		e.reported.Clear()
		e.reportedCount.Store(0)
	}
	e.logger.WarnContext(ctx, "session token failed to decode",
		"token_fingerprint", fp,
		"error", err,
		"verified", e.decoder.Verifies(),
	)
}

