package access

import (
	"context"

	"steward/internal/rights"
	"steward/internal/session"
	"steward/internal/token"
)

// Viewer is the decoded session of the request being served.
type Viewer struct {
	Claims  *token.Claims
	Profile session.Record

	rights rights.Set
	eval   *Evaluator
}

// Can reports whether the viewer holds id. It applies the same rules as
// Evaluator.Evaluate, so a hidden button and a guarded route never disagree.
func (v *Viewer) Can(ctx context.Context, id rights.ID) bool {
	if v == nil {
		return false
	}
	return v.eval.check(ctx, v.rights, id).Allowed()
}

// Decide is Can with the full decision.
func (v *Viewer) Decide(ctx context.Context, id rights.ID) Decision {
	if v == nil {
		return NoSession
	}
	return v.eval.check(ctx, v.rights, id)
}

// SubjectID returns the id of the account the session belongs to.
func (v *Viewer) SubjectID() string {
	if v == nil {
		return ""
	}
	return v.Claims.SubjectID()
}

// Rights returns the viewer's capabilities for display.
func (v *Viewer) Rights() []rights.ID {
	if v == nil {
		return nil
	}
	return v.rights.Sorted()
}

type viewerKey struct{}

// WithViewer stores v in ctx.
func WithViewer(ctx context.Context, v *Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFrom returns the viewer stored by the route guard, if any.
func ViewerFrom(ctx context.Context) (*Viewer, bool) {
	v, ok := ctx.Value(viewerKey{}).(*Viewer)
	return v, ok && v != nil
}
