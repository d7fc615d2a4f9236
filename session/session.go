// Package session defines conversation state and the store abstraction that
// holds it. Sessions are independent units: nothing is shared between them
// except the read-only catalog and question graphs.
package session

import (
	"time"

	"pa-intake/flow"
)

// Status is the session lifecycle flag. Ended sessions reject all mutation.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusEnded     Status = "ended"
)

// Phase tracks where a session is in the intake conversation.
type Phase string

const (
	PhaseIntake       Phase = "intake"
	PhaseQuestionFlow Phase = "question_flow"
	PhaseComplete     Phase = "complete"
)

// CollectedFields are the identity fields gathered during intake.
type CollectedFields struct {
	MemberName  string `json:"member_name,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	DrugName    string `json:"drug_name,omitempty"`
	DrugID      string `json:"drug_id,omitempty"`
}

// Session is one conversation's state. It is owned exclusively by the engine;
// stores only persist and retrieve it.
type Session struct {
	ID            string            `json:"id"`
	Status        Status            `json:"status"`
	Phase         Phase             `json:"phase"`
	Collected     CollectedFields   `json:"collected"`
	QuestionSetID string            `json:"question_set_id,omitempty"`
	CurrentNodeID string            `json:"current_node_id,omitempty"`
	Answers       map[string]string `json:"answers"`
	Decision      *flow.Decision    `json:"decision,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	EndedAt       *time.Time        `json:"ended_at,omitempty"`
}

// New returns a fresh session in the intake phase.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Status:    StatusActive,
		Phase:     PhaseIntake,
		Answers:   make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch refreshes the activity timestamp the reaper keys off.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Writable reports whether the session still accepts mutation.
func (s *Session) Writable() bool {
	return s.Status == StatusActive
}

// Complete records the decision and closes the question flow.
func (s *Session) Complete(d flow.Decision) {
	s.Decision = &d
	s.Phase = PhaseComplete
	s.Status = StatusCompleted
	now := time.Now().UTC()
	s.UpdatedAt = now
	s.EndedAt = &now
}

// End marks the session as explicitly terminated.
func (s *Session) End() {
	s.Status = StatusEnded
	now := time.Now().UTC()
	s.UpdatedAt = now
	s.EndedAt = &now
}

// Clone returns a deep copy so callers never alias store-held state.
func (s *Session) Clone() *Session {
	dup := *s
	dup.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		dup.Answers[k] = v
	}
	if s.Decision != nil {
		d := *s.Decision
		dup.Decision = &d
	}
	if s.EndedAt != nil {
		e := *s.EndedAt
		dup.EndedAt = &e
	}
	return &dup
}
