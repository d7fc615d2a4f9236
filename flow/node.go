// Package flow defines the per-medication question graphs: typed question
// nodes, branching transitions, and terminal decisions.
package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeType discriminates the question node union. The type decides how raw
// answers are normalized and how transitions are resolved.
type NodeType string

const (
	NodeMultipleChoice NodeType = "multiple_choice"
	NodeYesNo          NodeType = "yes_no"
	NodeNumeric        NodeType = "numeric"
	NodeText           NodeType = "text"
)

// NodeRole tags a node for the fallback decision rules. Most nodes carry no
// role.
type NodeRole string

const (
	RoleNone             NodeRole = ""
	RoleScreening        NodeRole = "screening"
	RoleContraindication NodeRole = "contraindication"
)

// Outcome is a terminal decision for a session.
type Outcome string

const (
	OutcomeApprove       Outcome = "approve"
	OutcomeDeny          Outcome = "deny"
	OutcomeDocsRequired  Outcome = "documentation_required"
)

// Decision pairs an outcome with the reason recorded on the session.
type Decision struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Reason  string  `json:"reason" yaml:"reason"`
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies within the range, inclusive on both ends.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Validation constrains the answer domain beyond the node type.
type Validation struct {
	Range     *Range `yaml:"range,omitempty"`     // numeric nodes
	MinLength int    `yaml:"min_length,omitempty"` // text nodes
}

// Transition routes a canonical answer to the next node or a terminal
// decision. Exactly one of Next or Decide is set. Answer keys transitions for
// multiple_choice and yes_no nodes; Range keys them for numeric nodes; text
// nodes use a single unconditional transition.
type Transition struct {
	Answer string    `yaml:"answer,omitempty"`
	Range  *Range    `yaml:"range,omitempty"`
	Next   string    `yaml:"next,omitempty"`
	Decide *Decision `yaml:"decide,omitempty"`
}

// QuestionNode is one question in a graph. The payload fields are
// type-specific: Options only for multiple_choice, Validation for numeric and
// text nodes.
type QuestionNode struct {
	ID          string       `yaml:"id"`
	Text        string       `yaml:"text"`
	Type        NodeType     `yaml:"type"`
	Role        NodeRole     `yaml:"role,omitempty"`
	Options     []string     `yaml:"options,omitempty"`
	Validation  *Validation  `yaml:"validation,omitempty"`
	Transitions []Transition `yaml:"transitions,omitempty"`
	Default     *Transition  `yaml:"default,omitempty"`
}

// checkShape enforces the tagged-union constraints at construction time so
// traversal never has to type-sniff.
func (n *QuestionNode) checkShape() error {
	if n.ID == "" {
		return fmt.Errorf("node missing id")
	}
	if n.Text == "" {
		return fmt.Errorf("node %s missing text", n.ID)
	}
	switch n.Type {
	case NodeMultipleChoice:
		if len(n.Options) < 2 {
			return fmt.Errorf("multiple_choice node %s needs at least two options", n.ID)
		}
	case NodeYesNo:
		if len(n.Options) != 0 {
			return fmt.Errorf("yes_no node %s must not declare options", n.ID)
		}
	case NodeNumeric:
		if len(n.Options) != 0 {
			return fmt.Errorf("numeric node %s must not declare options", n.ID)
		}
		if n.Validation != nil && n.Validation.Range != nil && n.Validation.Range.Min > n.Validation.Range.Max {
			return fmt.Errorf("numeric node %s has inverted range", n.ID)
		}
	case NodeText:
		if len(n.Transitions) != 1 || n.Transitions[0].Answer != "" || n.Transitions[0].Range != nil {
			return fmt.Errorf("text node %s needs exactly one unconditional transition", n.ID)
		}
	default:
		return fmt.Errorf("node %s has unknown type %q", n.ID, n.Type)
	}
	for i, tr := range n.Transitions {
		if (tr.Next == "") == (tr.Decide == nil) {
			return fmt.Errorf("node %s transition %d must set exactly one of next/decide", n.ID, i)
		}
	}
	if n.Default != nil && (n.Default.Next == "") == (n.Default.Decide == nil) {
		return fmt.Errorf("node %s default must set exactly one of next/decide", n.ID)
	}
	return nil
}

// hasFallback reports whether traversal can always leave the node. yes_no
// nodes with both polarities mapped count even without a default.
func (n *QuestionNode) hasFallback() bool {
	if n.Default != nil {
		return true
	}
	switch n.Type {
	case NodeText:
		return len(n.Transitions) == 1
	case NodeYesNo:
		var yes, no bool
		for _, tr := range n.Transitions {
			switch tr.Answer {
			case "yes":
				yes = true
			case "no":
				no = true
			}
		}
		return yes && no
	}
	return false
}

// resolve picks the transition for a canonical answer, or nil when the node
// declares no applicable route.
func (n *QuestionNode) resolve(canonical string) *Transition {
	switch n.Type {
	case NodeMultipleChoice, NodeYesNo:
		for i := range n.Transitions {
			if strings.EqualFold(n.Transitions[i].Answer, canonical) {
				return &n.Transitions[i]
			}
		}
	case NodeNumeric:
		v, err := strconv.ParseFloat(strings.TrimSpace(canonical), 64)
		if err != nil {
			return nil
		}
		// First matching range wins.
		for i := range n.Transitions {
			if n.Transitions[i].Range != nil && n.Transitions[i].Range.Contains(v) {
				return &n.Transitions[i]
			}
		}
	case NodeText:
		return &n.Transitions[0]
	}
	return n.Default
}
