package flow

import (
	"errors"
	"fmt"
)

// ErrNoTransition is returned when a node declares no route for a canonical
// answer. Well-formed graphs never produce it; the engine treats it as a
// configuration gap and falls back to the rule-based decision.
var ErrNoTransition = errors.New("no transition for answer")

// Step is the result of advancing past a node: either the next node id or a
// terminal decision, never both.
type Step struct {
	NextNodeID string
	Decision   *Decision
}

// Graph is a static, read-only question graph shared by every drug that
// references its question set.
type Graph struct {
	QuestionSetID string         `yaml:"question_set_id"`
	StartNodeID   string         `yaml:"start"`
	Nodes         []QuestionNode `yaml:"nodes"`

	byID map[string]*QuestionNode
}

// NewGraph builds a graph from its parts and checks node shapes. Callers
// loading definitions from configuration should also run Validate.
func NewGraph(questionSetID, startNodeID string, nodes []QuestionNode) (*Graph, error) {
	g := &Graph{QuestionSetID: questionSetID, StartNodeID: startNodeID, Nodes: nodes}
	if err := g.init(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) init() error {
	g.byID = make(map[string]*QuestionNode, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if err := n.checkShape(); err != nil {
			return fmt.Errorf("question set %s: %w", g.QuestionSetID, err)
		}
		if _, dup := g.byID[n.ID]; dup {
			return fmt.Errorf("question set %s: duplicate node id %s", g.QuestionSetID, n.ID)
		}
		g.byID[n.ID] = n
	}
	return nil
}

// Node returns the node for an id.
func (g *Graph) Node(id string) (*QuestionNode, error) {
	n, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("question set %s: unknown node %s", g.QuestionSetID, id)
	}
	return n, nil
}

// NextStep resolves the transition for a canonical answer on the given node.
func (g *Graph) NextStep(node *QuestionNode, canonical string) (Step, error) {
	tr := node.resolve(canonical)
	if tr == nil {
		return Step{}, fmt.Errorf("node %s, answer %q: %w", node.ID, canonical, ErrNoTransition)
	}
	if tr.Decide != nil {
		return Step{Decision: tr.Decide}, nil
	}
	return Step{NextNodeID: tr.Next}, nil
}

// Validate checks graph integrity: the start node exists, every transition
// target exists, every node reachable from the start has a fallback route,
// and no cycle is reachable from the start.
func (g *Graph) Validate() error {
	if g.QuestionSetID == "" {
		return fmt.Errorf("question set missing id")
	}
	if _, ok := g.byID[g.StartNodeID]; !ok {
		return fmt.Errorf("question set %s: start node %q not defined", g.QuestionSetID, g.StartNodeID)
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		for _, tr := range n.Transitions {
			if tr.Next != "" {
				if _, ok := g.byID[tr.Next]; !ok {
					return fmt.Errorf("question set %s: node %s targets unknown node %s", g.QuestionSetID, n.ID, tr.Next)
				}
			}
		}
		if n.Default != nil && n.Default.Next != "" {
			if _, ok := g.byID[n.Default.Next]; !ok {
				return fmt.Errorf("question set %s: node %s default targets unknown node %s", g.QuestionSetID, n.ID, n.Default.Next)
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(g.Nodes))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("question set %s: cycle through node %s", g.QuestionSetID, id)
		case done:
			return nil
		}
		state[id] = visiting
		n := g.byID[id]
		if !n.hasFallback() {
			return fmt.Errorf("question set %s: node %s can dead-end without a fallback", g.QuestionSetID, id)
		}
		for _, tr := range n.Transitions {
			if tr.Next != "" {
				if err := visit(tr.Next); err != nil {
					return err
				}
			}
		}
		if n.Default != nil && n.Default.Next != "" {
			if err := visit(n.Default.Next); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	return visit(g.StartNodeID)
}

// GraphSet indexes loaded graphs by question set id.
type GraphSet map[string]*Graph

// Graph returns the graph for a question set id, or nil.
func (gs GraphSet) Graph(questionSetID string) *Graph {
	return gs[questionSetID]
}
