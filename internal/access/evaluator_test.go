package access

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"steward/internal/rights"
	"steward/internal/token"
)

const signingKey = "evaluator-test-key"

type EvaluatorSuite struct {
	suite.Suite
	ctx    context.Context
	issuer *token.Issuer
	eval   *Evaluator
	logs   *bytes.Buffer
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.issuer = token.NewIssuer(signingKey, "test")
	s.logs = &bytes.Buffer{}
	s.eval = NewEvaluator(token.NewDecoder(signingKey), slog.New(slog.NewTextHandler(s.logs, nil)))
}

func (s *EvaluatorSuite) issue(granted ...string) string {
	raw, err := s.issuer.Issue(token.Profile{SubjectID: "U1", Name: "Ada", Rights: granted}, time.Hour)
	s.Require().NoError(err)
	return raw
}

func (s *EvaluatorSuite) allIDs() []string {
	var ids []string
	for r := range rights.All() {
		ids = append(ids, string(r.ID))
	}
	return ids
}

func (s *EvaluatorSuite) TestGrantedCapabilitiesAllow() {
	raw := s.issue(s.allIDs()...)
	for r := range rights.All() {
		s.True(s.eval.HasCapability(s.ctx, raw, r.ID), r.ID)
	}
}

func (s *EvaluatorSuite) TestMissingCapabilitiesDeny() {
	for granted := range rights.All() {
		raw := s.issue(string(granted.ID))
		for r := range rights.All() {
			if r.ID == granted.ID {
				continue
			}
			s.Equal(Forbidden, s.eval.Evaluate(s.ctx, raw, r.ID), "token with %s asked for %s", granted.ID, r.ID)
		}
	}
}

func (s *EvaluatorSuite) TestAbsentTokenAlwaysDenies() {
	s.Equal(NoSession, s.eval.Evaluate(s.ctx, "", ""))
	for r := range rights.All() {
		s.False(s.eval.HasCapability(s.ctx, "", r.ID))
	}
	s.Empty(s.logs.String(), "absent session is not logged")
}

func (s *EvaluatorSuite) TestEmptyRequirementNeedsOnlySession() {
	s.Equal(Allow, s.eval.Evaluate(s.ctx, s.issue(), ""))
}

func (s *EvaluatorSuite) TestMalformedTokenFailsClosedAndLogsOnce() {
	for range 3 {
		s.Equal(MalformedToken, s.eval.Evaluate(s.ctx, "not.a.token", rights.ManageDental))
		s.Equal(MalformedToken, s.eval.Evaluate(s.ctx, "not.a.token", ""))
	}
	s.Equal(1, strings.Count(s.logs.String(), "session token failed to decode"))
}

func (s *EvaluatorSuite) TestUnknownCapabilityFailsClosed() {
	raw := s.issue("manage_everything", string(rights.ManageDental))

	s.Equal(UnknownCapability, s.eval.Evaluate(s.ctx, raw, "manage_everything"))
	s.Contains(s.logs.String(), "undeclared capability")
}

func (s *EvaluatorSuite) TestExactCaseSensitiveMatch() {
	raw := s.issue("Manage_Dental", "manage_dent")

	s.Equal(Forbidden, s.eval.Evaluate(s.ctx, raw, rights.ManageDental))
}

func (s *EvaluatorSuite) TestSeveralCapabilities() {
	raw := s.issue(string(rights.ManageWebsite), string(rights.ManageDental))

	s.True(s.eval.HasCapability(s.ctx, raw, rights.ManageWebsite))
	s.True(s.eval.HasCapability(s.ctx, raw, rights.ManageDental))
	s.False(s.eval.HasCapability(s.ctx, raw, rights.ManageLeadership))
}

func (s *EvaluatorSuite) TestDeterministic() {
	raw := s.issue(string(rights.ManageRiders))
	first := s.eval.Evaluate(s.ctx, raw, rights.ManageRiders)
	for range 100 {
		s.Equal(first, s.eval.Evaluate(s.ctx, raw, rights.ManageRiders))
		s.Equal(Forbidden, s.eval.Evaluate(s.ctx, raw, rights.AddRider))
	}
}

func (s *EvaluatorSuite) TestViewerAgreesWithEvaluate() {
	raw := s.issue(string(rights.ManageLeadership), string(rights.ViewReports))
	v, d := s.eval.Inspect(s.ctx, raw)
	s.Require().Equal(Allow, d)

	for r := range rights.All() {
		s.Equal(s.eval.HasCapability(s.ctx, raw, r.ID), v.Can(s.ctx, r.ID), r.ID)
	}
	s.Equal("U1", v.SubjectID())
	s.Equal([]rights.ID{rights.ManageLeadership, rights.ViewReports}, v.Rights())
}

func TestViewerContext(t *testing.T) {
	_, ok := ViewerFrom(context.Background())
	assert.False(t, ok)

	var nilViewer *Viewer
	assert.False(t, nilViewer.Can(context.Background(), rights.ManageDental))
	assert.Equal(t, NoSession, nilViewer.Decide(context.Background(), ""))

	eval := NewEvaluator(token.NewDecoder(""), slog.New(slog.NewTextHandler(io.Discard, nil)))
	raw, err := token.NewIssuer("k", "test").Issue(token.Profile{SubjectID: "U2"}, time.Hour)
	require.NoError(t, err)
	v, d := eval.Inspect(context.Background(), raw)
	require.Equal(t, Allow, d)

	got, ok := ViewerFrom(WithViewer(context.Background(), v))
	require.True(t, ok)
	assert.Equal(t, "U2", got.SubjectID())
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "forbidden", Forbidden.String())
	assert.Equal(t, "no_session", NoSession.String())
	assert.True(t, Allow.Allowed())
	assert.False(t, UnknownCapability.Allowed())
}
