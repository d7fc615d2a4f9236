package engine

import (
	"context"
	"testing"
	"time"

	"pa-intake/catalog"
	"pa-intake/config"
	apperrors "pa-intake/errors"
	"pa-intake/flow"
	"pa-intake/normalize"
	"pa-intake/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		FuzzyMatchThreshold:    0.70,
		ResolveStrictThreshold: 0.80,
		ResolveStrictFarBar:    0.85,
		ResolveLooseThreshold:  0.70,
		ResolveLooseFarBar:     0.75,
		TextAnswerMinLength:    3,
		ResolverCacheSize:      16,
		MaxResolveAlternatives: 3,
		LLMRequestTimeout:      time.Second,
		CleanupEnabled:         true,
		CleanupInterval:        time.Minute,
		SessionRetentionAge:    time.Hour,
	}
}

func newTestEngine(t *testing.T) (*Engine, session.Store) {
	t.Helper()
	cfg := testConfig()
	logger := zap.NewNop()
	store := session.NewMemoryStore()

	resolver, err := catalog.NewResolver(catalog.Default(), cfg, logger)
	require.NoError(t, err)

	eng := New(cfg, logger, store, resolver, flow.Defaults(), normalize.New(cfg, logger, nil), nil)
	return eng, store
}

// startQuestionFlow walks a session through intake up to the first question.
func startQuestionFlow(t *testing.T, eng *Engine) string {
	t.Helper()
	ctx := context.Background()

	id, err := eng.Create(ctx)
	require.NoError(t, err)

	reply, err := eng.SubmitIntakeField(ctx, id, FieldMemberName, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, ActionCollectIntake, reply.Action)
	assert.Contains(t, reply.MissingFields, FieldDateOfBirth)
	assert.Contains(t, reply.MissingFields, FieldDrugName)

	_, err = eng.SubmitIntakeField(ctx, id, FieldDateOfBirth, "03/14/1958")
	require.NoError(t, err)

	reply, err = eng.SubmitIntakeField(ctx, id, FieldDrugName, "ozempic")
	require.NoError(t, err)
	require.Equal(t, ActionNextQuestion, reply.Action)
	require.NotNil(t, reply.Question)
	assert.Equal(t, "diagnosis", reply.Question.NodeID)
	assert.Equal(t, "multiple_choice", reply.Question.Type)
	return id
}

func TestApprovePathEndToEnd(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	id := startQuestionFlow(t, eng)

	steps := []struct {
		answer   string
		nextNode string
	}{
		{"Type 2 Diabetes", "hba1c"},
		{"8.5", "metformin_trial"},
		{"yes", "thyroid_contra"},
		{"no", "clinical_notes"},
	}
	for _, step := range steps {
		reply, err := eng.SubmitAnswer(ctx, id, step.answer)
		require.NoError(t, err, "answer %q", step.answer)
		require.Equal(t, ActionNextQuestion, reply.Action, "answer %q", step.answer)
		require.NotNil(t, reply.Question)
		assert.Equal(t, step.nextNode, reply.Question.NodeID)
	}

	reply, err := eng.SubmitAnswer(ctx, id, "Member stable on current regimen.")
	require.NoError(t, err)
	assert.Equal(t, ActionComplete, reply.Action)
	require.NotNil(t, reply.Decision)
	assert.Equal(t, flow.OutcomeApprove, reply.Decision.Outcome)

	summary, err := eng.GetSessionSummary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, summary.Status)
	assert.Equal(t, session.PhaseComplete, summary.Phase)
	assert.Equal(t, "Jane Doe", summary.Collected.MemberName)
	assert.Equal(t, "Ozempic", summary.Collected.DrugName)
	assert.Equal(t, "Type 2 Diabetes", summary.Answers["diagnosis"])
	require.NotNil(t, summary.Decision)
	assert.Equal(t, flow.OutcomeApprove, summary.Decision.Outcome)
}

func TestContraindicationDenies(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	id := startQuestionFlow(t, eng)

	for _, answer := range []string{"Type 2 Diabetes", "9", "yes"} {
		reply, err := eng.SubmitAnswer(ctx, id, answer)
		require.NoError(t, err)
		require.Equal(t, ActionNextQuestion, reply.Action)
	}

	reply, err := eng.SubmitAnswer(ctx, id, "yes") // thyroid history
	require.NoError(t, err)
	assert.Equal(t, ActionComplete, reply.Action)
	require.NotNil(t, reply.Decision)
	assert.Equal(t, flow.OutcomeDeny, reply.Decision.Outcome)
}

func TestClarificationLeavesSessionUnchanged(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	id := startQuestionFlow(t, eng)

	reply, err := eng.SubmitAnswer(ctx, id, "diabetes")
	require.NoError(t, err)
	assert.Equal(t, ActionClarification, reply.Action)
	assert.Len(t, reply.Candidates, 2)

	// Still waiting on the same question, nothing recorded.
	q, err := eng.GetCurrentQuestion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "diagnosis", q.NodeID)

	summary, err := eng.GetSessionSummary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, summary.Status)
	assert.Empty(t, summary.Answers)

	// A clean answer afterwards proceeds normally.
	reply, err = eng.SubmitAnswer(ctx, id, "Type 2 Diabetes")
	require.NoError(t, err)
	assert.Equal(t, ActionNextQuestion, reply.Action)
}

func TestDrugResolutionClarification(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	id, err := eng.Create(ctx)
	require.NoError(t, err)

	// Two edits away from ozempic: below the strict bar, above the loose one.
	reply, err := eng.SubmitIntakeField(ctx, id, FieldDrugName, "ozampik")
	require.NoError(t, err)
	assert.Equal(t, ActionClarification, reply.Action)
	require.NotEmpty(t, reply.Alternatives)
	assert.Equal(t, "Ozempic", reply.Alternatives[0].Name)
	assert.Contains(t, reply.Clarification, "Ozempic")

	// Session stays in intake with the drug unset.
	summary, err := eng.GetSessionSummary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseIntake, summary.Phase)
	assert.Empty(t, summary.Collected.DrugID)
}

func TestUnknownDrugAsksAgain(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	id, err := eng.Create(ctx)
	require.NoError(t, err)

	reply, err := eng.SubmitIntakeField(ctx, id, FieldDrugName, "acetaminophen")
	require.NoError(t, err)
	assert.Equal(t, ActionClarification, reply.Action)
	assert.Empty(t, reply.Alternatives)
}

func TestAnswerBeforeQuestionFlow(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	id, err := eng.Create(ctx)
	require.NoError(t, err)

	_, err = eng.SubmitAnswer(ctx, id, "yes")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = eng.GetCurrentQuestion(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUnknownSession(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.SubmitAnswer(ctx, "nope", "yes")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	_, err = eng.GetSessionSummary(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	assert.ErrorIs(t, eng.End(ctx, "nope"), apperrors.ErrSessionNotFound)
}

func TestEndedSessionRejectsMutation(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	id := startQuestionFlow(t, eng)

	require.NoError(t, eng.End(ctx, id))

	_, err := eng.SubmitAnswer(ctx, id, "Type 2 Diabetes")
	assert.ErrorIs(t, err, apperrors.ErrSessionClosed)
	_, err = eng.SubmitIntakeField(ctx, id, FieldMemberName, "someone else")
	assert.ErrorIs(t, err, apperrors.ErrSessionClosed)
	assert.ErrorIs(t, eng.End(ctx, id), apperrors.ErrSessionClosed)

	// Reads still work after ending.
	summary, err := eng.GetSessionSummary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, session.StatusEnded, summary.Status)
}

func TestCompletedSessionRejectsFurtherAnswers(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	id := startQuestionFlow(t, eng)

	for _, answer := range []string{"Type 2 Diabetes", "8.5", "yes", "no", "notes for the reviewer"} {
		_, err := eng.SubmitAnswer(ctx, id, answer)
		require.NoError(t, err)
	}

	_, err := eng.SubmitAnswer(ctx, id, "yes")
	assert.ErrorIs(t, err, apperrors.ErrSessionClosed)
}

// A graph that routes an answer nowhere is a configuration gap; the engine
// must still close the session with the rule-based fallback decision.
func TestGraphGapFallsBackToRuleDecision(t *testing.T) {
	gapGraph, err := flow.NewGraph("glp1_diabetes", "thyroid", []flow.QuestionNode{
		{
			ID:   "thyroid",
			Text: "Does the member have a history of medullary thyroid carcinoma?",
			Type: flow.NodeYesNo,
			Role: flow.RoleContraindication,
			Transitions: []flow.Transition{
				{Answer: "no", Next: "orphan"},
			},
		},
		{
			ID:   "orphan",
			Text: "Placeholder",
			Type: flow.NodeYesNo,
			Transitions: []flow.Transition{
				{Answer: "yes", Next: "thyroid"},
				{Answer: "no", Next: "thyroid"},
			},
		},
	})
	require.NoError(t, err)

	cfg := testConfig()
	logger := zap.NewNop()
	store := session.NewMemoryStore()
	resolver, err := catalog.NewResolver(catalog.Default(), cfg, logger)
	require.NoError(t, err)
	eng := New(cfg, logger, store, resolver, flow.GraphSet{"glp1_diabetes": gapGraph},
		normalize.New(cfg, logger, nil), nil)

	ctx := context.Background()
	id, err := eng.Create(ctx)
	require.NoError(t, err)
	reply, err := eng.SubmitIntakeField(ctx, id, FieldDrugName, "ozempic")
	require.NoError(t, err)
	require.Equal(t, ActionNextQuestion, reply.Action)

	// "yes" on the contraindication has no route; the fallback rules deny.
	reply, err = eng.SubmitAnswer(ctx, id, "yes")
	require.NoError(t, err)
	assert.Equal(t, ActionComplete, reply.Action)
	require.NotNil(t, reply.Decision)
	assert.Equal(t, flow.OutcomeDeny, reply.Decision.Outcome)
}

func TestReaperSweepsIdleSessions(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	id, err := eng.Create(ctx)
	require.NoError(t, err)

	stale, err := store.Get(ctx, id)
	require.NoError(t, err)
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.Put(ctx, stale))

	fresh, err := eng.Create(ctx)
	require.NoError(t, err)

	reaper := NewReaper(store, testConfig(), zap.NewNop())
	removed, err := reaper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	_, err = store.Get(ctx, fresh)
	assert.NoError(t, err)
}
