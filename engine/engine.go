// Package engine owns the session lifecycle: intake, graph traversal, and
// decision recording. It is the only writer of session state.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pa-intake/catalog"
	"pa-intake/classifier"
	"pa-intake/config"
	apperrors "pa-intake/errors"
	"pa-intake/flow"
	"pa-intake/normalize"
	"pa-intake/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Action tells the caller what the conversation needs next.
type Action string

const (
	ActionCollectIntake Action = "collect_intake"
	ActionNextQuestion  Action = "next_question"
	ActionClarification Action = "clarification"
	ActionComplete      Action = "complete"
)

// QuestionView is the presentation-facing shape of the current node.
type QuestionView struct {
	NodeID  string      `json:"node_id"`
	Text    string      `json:"text"`
	Type    string      `json:"type"`
	Options []string    `json:"options,omitempty"`
	Range   *flow.Range `json:"range,omitempty"`
}

// Reply is the outcome of one engine operation.
type Reply struct {
	Action        Action                `json:"action"`
	SessionID     string                `json:"session_id"`
	Question      *QuestionView         `json:"question,omitempty"`
	Clarification string                `json:"clarification,omitempty"`
	Candidates    []normalize.Candidate `json:"candidates,omitempty"`
	Alternatives  []catalog.Alternative `json:"alternatives,omitempty"`
	Decision      *flow.Decision        `json:"decision,omitempty"`
	MissingFields []string              `json:"missing_fields,omitempty"`
}

// Summary is the read-only view for the presentation layer.
type Summary struct {
	SessionID string                  `json:"session_id"`
	Status    session.Status          `json:"status"`
	Phase     session.Phase           `json:"phase"`
	Collected session.CollectedFields `json:"collected"`
	Answers   map[string]string       `json:"answers"`
	Decision  *flow.Decision          `json:"decision,omitempty"`
}

// Intake field names accepted by SubmitIntakeField.
const (
	FieldMemberName  = "member_name"
	FieldDateOfBirth = "date_of_birth"
	FieldDrugName    = "drug_name"
)

type Engine struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      session.Store
	resolver   *catalog.Resolver
	graphs     flow.GraphSet
	normalizer *normalize.Normalizer
	extractor  classifier.TextClassifier // nil disables free-text intake

	// Per-session serialization. Overlapping calls for one session are an
	// operator error in the original design; here they queue instead.
	locks sync.Map
}

func New(
	cfg *config.Config,
	logger *zap.Logger,
	store session.Store,
	resolver *catalog.Resolver,
	graphs flow.GraphSet,
	normalizer *normalize.Normalizer,
	extractor classifier.TextClassifier,
) *Engine {
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		resolver:   resolver,
		graphs:     graphs,
		normalizer: normalizer,
		extractor:  extractor,
	}
}

func (e *Engine) lockSession(id string) func() {
	mu, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Create allocates a fresh session in the intake phase.
func (e *Engine) Create(ctx context.Context) (string, error) {
	s := session.New(uuid.New().String())
	if err := e.store.Put(ctx, s); err != nil {
		return "", apperrors.WrapError(err, "store new session")
	}
	e.logger.Info("session created", zap.String("session_id", s.ID))
	return s.ID, nil
}

// SubmitIntakeField records one identity field. Setting the drug name
// triggers entity resolution; a resolved drug moves the session into the
// question flow at the graph's start node.
func (e *Engine) SubmitIntakeField(ctx context.Context, sessionID, field, value string) (Reply, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	s, err := e.loadWritable(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if s.Phase != session.PhaseIntake {
		return Reply{}, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "session %s is not collecting intake", sessionID)
	}

	value = strings.TrimSpace(value)
	switch field {
	case FieldMemberName:
		s.Collected.MemberName = value
	case FieldDateOfBirth:
		s.Collected.DateOfBirth = value
	case FieldDrugName:
		return e.applyDrugName(ctx, s, value)
	default:
		return Reply{}, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "unknown intake field %q", field)
	}

	s.Touch()
	if err := e.store.Put(ctx, s); err != nil {
		return Reply{}, apperrors.WrapError(err, "store session")
	}
	return e.intakeReply(s), nil
}

// SubmitIntake feeds free text through the extraction collaborator and
// records whatever fields it managed to populate. Extraction is best effort;
// anything missing is simply re-requested.
func (e *Engine) SubmitIntake(ctx context.Context, sessionID, text string) (Reply, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	s, err := e.loadWritable(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if s.Phase != session.PhaseIntake {
		return Reply{}, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "session %s is not collecting intake", sessionID)
	}

	if e.extractor != nil {
		fields := e.extractor.ExtractIntake(ctx, text)
		if fields.MemberName != "" && s.Collected.MemberName == "" {
			s.Collected.MemberName = fields.MemberName
		}
		if fields.DateOfBirth != "" && s.Collected.DateOfBirth == "" {
			s.Collected.DateOfBirth = fields.DateOfBirth
		}
		if fields.DrugName != "" && s.Collected.DrugID == "" {
			return e.applyDrugName(ctx, s, fields.DrugName)
		}
	}

	s.Touch()
	if err := e.store.Put(ctx, s); err != nil {
		return Reply{}, apperrors.WrapError(err, "store session")
	}
	return e.intakeReply(s), nil
}

// applyDrugName resolves the drug and, on success, starts the question flow.
// Caller holds the session lock.
func (e *Engine) applyDrugName(ctx context.Context, s *session.Session, rawName string) (Reply, error) {
	res := e.resolver.Resolve(rawName)
	if res.Drug == nil {
		// Keep whatever else intake collected in this call.
		s.Touch()
		if err := e.store.Put(ctx, s); err != nil {
			return Reply{}, apperrors.WrapError(err, "store session")
		}
		reply := Reply{
			Action:        ActionClarification,
			SessionID:     s.ID,
			Clarification: "the medication was not recognized; please repeat its name",
			Alternatives:  res.Alternatives,
		}
		if len(res.Alternatives) > 0 {
			names := make([]string, len(res.Alternatives))
			for i, a := range res.Alternatives {
				names[i] = a.Name
			}
			reply.Clarification = "did you mean " + strings.Join(names, ", ") + "?"
		}
		return reply, nil
	}

	g := e.graphs.Graph(res.Drug.QuestionSetID)
	if g == nil {
		// Configuration error, fatal to this session only.
		return Reply{}, apperrors.WrapErrorf(apperrors.ErrGraphNotFound,
			"drug %s references question set %s", res.Drug.ID, res.Drug.QuestionSetID)
	}

	s.Collected.DrugName = res.Drug.Name
	s.Collected.DrugID = res.Drug.ID
	s.QuestionSetID = g.QuestionSetID
	s.CurrentNodeID = g.StartNodeID
	s.Phase = session.PhaseQuestionFlow
	s.Touch()
	if err := e.store.Put(ctx, s); err != nil {
		return Reply{}, apperrors.WrapError(err, "store session")
	}

	e.logger.Info("question flow started",
		zap.String("session_id", s.ID),
		zap.String("drug", res.Drug.ID),
		zap.String("question_set", g.QuestionSetID),
		zap.Float64("resolve_confidence", res.Confidence))

	node, err := g.Node(s.CurrentNodeID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Action:    ActionNextQuestion,
		SessionID: s.ID,
		Question:  viewOf(node),
	}, nil
}

// SubmitAnswer normalizes the raw answer against the current node and
// advances the graph. A clarification leaves the session untouched.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, rawAnswer string) (Reply, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	s, err := e.loadWritable(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}
	if s.Phase != session.PhaseQuestionFlow {
		return Reply{}, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "session %s has no pending question", sessionID)
	}

	g := e.graphs.Graph(s.QuestionSetID)
	if g == nil {
		return Reply{}, apperrors.WrapErrorf(apperrors.ErrGraphNotFound, "question set %s", s.QuestionSetID)
	}
	node, err := g.Node(s.CurrentNodeID)
	if err != nil {
		return Reply{}, err
	}

	res := e.normalizer.Normalize(ctx, rawAnswer, node)
	if res.NeedsClarification {
		return Reply{
			Action:        ActionClarification,
			SessionID:     s.ID,
			Question:      viewOf(node),
			Clarification: res.ClarificationReason,
			Candidates:    res.Candidates,
		}, nil
	}

	s.Answers[node.ID] = res.Canonical

	step, err := g.NextStep(node, res.Canonical)
	if errors.Is(err, flow.ErrNoTransition) {
		// Configuration gap: the graph ran out of road. Fall back to the
		// rule-based decision rather than stranding the session.
		d := flow.FallbackDecision(s.Answers, g)
		e.logger.Warn("graph exhausted without terminal, applying fallback decision",
			zap.String("session_id", s.ID),
			zap.String("node", node.ID),
			zap.String("outcome", string(d.Outcome)))
		return e.complete(ctx, s, d)
	}
	if err != nil {
		return Reply{}, err
	}

	if step.Decision != nil {
		return e.complete(ctx, s, *step.Decision)
	}

	s.CurrentNodeID = step.NextNodeID
	s.Touch()
	if err := e.store.Put(ctx, s); err != nil {
		return Reply{}, apperrors.WrapError(err, "store session")
	}
	next, err := g.Node(step.NextNodeID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Action:    ActionNextQuestion,
		SessionID: s.ID,
		Question:  viewOf(next),
	}, nil
}

func (e *Engine) complete(ctx context.Context, s *session.Session, d flow.Decision) (Reply, error) {
	s.Complete(d)
	if err := e.store.Put(ctx, s); err != nil {
		return Reply{}, apperrors.WrapError(err, "store session")
	}
	e.logger.Info("session decided",
		zap.String("session_id", s.ID),
		zap.String("outcome", string(d.Outcome)),
		zap.String("reason", d.Reason))
	return Reply{
		Action:    ActionComplete,
		SessionID: s.ID,
		Decision:  s.Decision,
	}, nil
}

// End marks the session terminated. Any later mutation fails with
// ErrSessionClosed.
func (e *Engine) End(ctx context.Context, sessionID string) error {
	unlock := e.lockSession(sessionID)
	defer unlock()

	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status == session.StatusEnded {
		return apperrors.WrapErrorf(apperrors.ErrSessionClosed, "session %s already ended", sessionID)
	}
	s.End()
	return e.store.Put(ctx, s)
}

// GetCurrentQuestion returns the pending question for the presentation layer.
func (e *Engine) GetCurrentQuestion(ctx context.Context, sessionID string) (*QuestionView, error) {
	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Phase != session.PhaseQuestionFlow {
		return nil, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "session %s has no pending question", sessionID)
	}
	g := e.graphs.Graph(s.QuestionSetID)
	if g == nil {
		return nil, apperrors.WrapErrorf(apperrors.ErrGraphNotFound, "question set %s", s.QuestionSetID)
	}
	node, err := g.Node(s.CurrentNodeID)
	if err != nil {
		return nil, err
	}
	return viewOf(node), nil
}

// GetSessionSummary returns the session's externally visible state.
func (e *Engine) GetSessionSummary(ctx context.Context, sessionID string) (Summary, error) {
	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		SessionID: s.ID,
		Status:    s.Status,
		Phase:     s.Phase,
		Collected: s.Collected,
		Answers:   s.Answers,
		Decision:  s.Decision,
	}, nil
}

// loadWritable fetches a session that still accepts mutation.
func (e *Engine) loadWritable(ctx context.Context, sessionID string) (*session.Session, error) {
	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Writable() {
		return nil, apperrors.WrapErrorf(apperrors.ErrSessionClosed, "session %s is %s", sessionID, s.Status)
	}
	return s, nil
}

func (e *Engine) intakeReply(s *session.Session) Reply {
	var missing []string
	if s.Collected.MemberName == "" {
		missing = append(missing, FieldMemberName)
	}
	if s.Collected.DateOfBirth == "" {
		missing = append(missing, FieldDateOfBirth)
	}
	if s.Collected.DrugID == "" {
		missing = append(missing, FieldDrugName)
	}
	return Reply{
		Action:        ActionCollectIntake,
		SessionID:     s.ID,
		MissingFields: missing,
	}
}

func viewOf(node *flow.QuestionNode) *QuestionView {
	v := &QuestionView{
		NodeID:  node.ID,
		Text:    node.Text,
		Type:    string(node.Type),
		Options: node.Options,
	}
	if node.Validation != nil {
		v.Range = node.Validation.Range
	}
	return v
}
