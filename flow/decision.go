package flow

import "fmt"

// FallbackDecision derives a decision from collected answers when traversal
// exhausts a graph without reaching a declared terminal. This is a safety net
// for configuration gaps; it never runs when the graph itself decided.
//
// Rules, in order: any contraindication node answered "yes" denies; any
// screening node left unanswered requires documentation; otherwise approve.
func FallbackDecision(answers map[string]string, g *Graph) Decision {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Role != RoleContraindication {
			continue
		}
		if answers[n.ID] == "yes" {
			return Decision{
				Outcome: OutcomeDeny,
				Reason:  fmt.Sprintf("contraindication declared (%s)", n.ID),
			}
		}
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Role != RoleScreening {
			continue
		}
		if _, ok := answers[n.ID]; !ok {
			return Decision{
				Outcome: OutcomeDocsRequired,
				Reason:  fmt.Sprintf("required screening not documented (%s)", n.ID),
			}
		}
	}
	return Decision{
		Outcome: OutcomeApprove,
		Reason:  "all collected answers met criteria",
	}
}
