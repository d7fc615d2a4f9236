package flow

// Defaults returns the built-in question sets for the shipped catalog.
// Production deployments normally replace these via QUESTION_SETS_PATH.
func Defaults() GraphSet {
	graphs := []*Graph{
		glp1Diabetes(),
		glp1Weight(),
		tnfBiologic(),
	}
	set := make(GraphSet, len(graphs))
	for _, g := range graphs {
		if err := g.init(); err != nil {
			panic(err)
		}
		if err := g.Validate(); err != nil {
			panic(err)
		}
		set[g.QuestionSetID] = g
	}
	return set
}

func glp1Diabetes() *Graph {
	return &Graph{
		QuestionSetID: "glp1_diabetes",
		StartNodeID:   "diagnosis",
		Nodes: []QuestionNode{
			{
				ID:      "diagnosis",
				Text:    "What is the member's primary diagnosis?",
				Type:    NodeMultipleChoice,
				Options: []string{"Type 1 Diabetes", "Type 2 Diabetes", "Obesity", "Other"},
				Transitions: []Transition{
					{Answer: "Type 2 Diabetes", Next: "hba1c"},
					{Answer: "Type 1 Diabetes", Decide: &Decision{
						Outcome: OutcomeDeny,
						Reason:  "GLP-1 receptor agonists are not indicated for type 1 diabetes",
					}},
					{Answer: "Obesity", Decide: &Decision{
						Outcome: OutcomeDeny,
						Reason:  "requested agent is covered for type 2 diabetes; see weight-management pathway",
					}},
				},
				Default: &Transition{Decide: &Decision{
					Outcome: OutcomeDocsRequired,
					Reason:  "diagnosis outside covered indications; supporting documentation required",
				}},
			},
			{
				ID:         "hba1c",
				Text:       "What is the member's most recent HbA1c (%)?",
				Type:       NodeNumeric,
				Validation: &Validation{Range: &Range{Min: 6.5, Max: 15}},
				Transitions: []Transition{
					{Range: &Range{Min: 6.5, Max: 7.9}, Next: "lifestyle"},
					{Range: &Range{Min: 8.0, Max: 15}, Next: "metformin_trial"},
				},
				Default: &Transition{Next: "metformin_trial"},
			},
			{
				ID:   "lifestyle",
				Text: "Has the member attempted lifestyle modification for at least 3 months?",
				Type: NodeYesNo,
				Transitions: []Transition{
					{Answer: "yes", Next: "metformin_trial"},
					{Answer: "no", Decide: &Decision{
						Outcome: OutcomeDocsRequired,
						Reason:  "documentation of a 3-month lifestyle modification attempt is required",
					}},
				},
			},
			{
				ID:   "metformin_trial",
				Text: "Has the member completed a trial of metformin for at least 3 months?",
				Type: NodeYesNo,
				Role: RoleScreening,
				Transitions: []Transition{
					{Answer: "yes", Next: "thyroid_contra"},
					{Answer: "no", Decide: &Decision{
						Outcome: OutcomeDeny,
						Reason:  "step therapy requires a metformin trial before GLP-1 coverage",
					}},
				},
			},
			{
				ID:   "thyroid_contra",
				Text: "Does the member have a personal or family history of medullary thyroid carcinoma or MEN2?",
				Type: NodeYesNo,
				Role: RoleContraindication,
				Transitions: []Transition{
					{Answer: "yes", Decide: &Decision{
						Outcome: OutcomeDeny,
						Reason:  "medullary thyroid carcinoma / MEN2 history contraindicates GLP-1 therapy",
					}},
					{Answer: "no", Next: "clinical_notes"},
				},
			},
			{
				ID:   "clinical_notes",
				Text: "Any additional clinical notes for the reviewer?",
				Type: NodeText,
				Validation: &Validation{MinLength: 3},
				Transitions: []Transition{
					{Decide: &Decision{
						Outcome: OutcomeApprove,
						Reason:  "clinical criteria for GLP-1 therapy met",
					}},
				},
			},
		},
	}
}

func glp1Weight() *Graph {
	return &Graph{
		QuestionSetID: "glp1_weight",
		StartNodeID:   "bmi",
		Nodes: []QuestionNode{
			{
				ID:         "bmi",
				Text:       "What is the member's current BMI?",
				Type:       NodeNumeric,
				Validation: &Validation{Range: &Range{Min: 15, Max: 70}},
				Transitions: []Transition{
					{Range: &Range{Min: 30, Max: 70}, Next: "weight_program"},
					{Range: &Range{Min: 27, Max: 29.9}, Next: "comorbidity"},
				},
				Default: &Transition{Decide: &Decision{
					Outcome: OutcomeDeny,
					Reason:  "BMI is below the coverage threshold for weight-management therapy",
				}},
			},
			{
				ID:   "comorbidity",
				Text: "Does the member have a weight-related comorbidity (hypertension, dyslipidemia, or sleep apnea)?",
				Type: NodeYesNo,
				Transitions: []Transition{
					{Answer: "yes", Next: "weight_program"},
					{Answer: "no", Decide: &Decision{
						Outcome: OutcomeDeny,
						Reason:  "BMI 27-30 requires a weight-related comorbidity for coverage",
					}},
				},
			},
			{
				ID:   "weight_program",
				Text: "Has the member participated in a structured weight-management program for at least 6 months?",
				Type: NodeYesNo,
				Role: RoleScreening,
				Transitions: []Transition{
					{Answer: "yes", Next: "thyroid_contra"},
					{Answer: "no", Decide: &Decision{
						Outcome: OutcomeDocsRequired,
						Reason:  "documentation of a 6-month weight-management program is required",
					}},
				},
			},
			{
				ID:   "thyroid_contra",
				Text: "Does the member have a personal or family history of medullary thyroid carcinoma or MEN2?",
				Type: NodeYesNo,
				Role: RoleContraindication,
				Transitions: []Transition{
					{Answer: "yes", Decide: &Decision{
						Outcome: OutcomeDeny,
						Reason:  "medullary thyroid carcinoma / MEN2 history contraindicates GLP-1 therapy",
					}},
					{Answer: "no", Next: "clinical_notes"},
				},
			},
			{
				ID:   "clinical_notes",
				Text: "Any additional clinical notes for the reviewer?",
				Type: NodeText,
				Validation: &Validation{MinLength: 3},
				Transitions: []Transition{
					{Decide: &Decision{
						Outcome: OutcomeApprove,
						Reason:  "clinical criteria for weight-management therapy met",
					}},
				},
			},
		},
	}
}

func tnfBiologic() *Graph {
	return &Graph{
		QuestionSetID: "tnf_biologic",
		StartNodeID:   "diagnosis",
		Nodes: []QuestionNode{
			{
				ID:   "diagnosis",
				Text: "What condition is being treated?",
				Type: NodeMultipleChoice,
				Options: []string{
					"Rheumatoid Arthritis",
					"Psoriatic Arthritis",
					"Crohn's Disease",
					"Ulcerative Colitis",
					"Other",
				},
				Transitions: []Transition{
					{Answer: "Rheumatoid Arthritis", Next: "tb_screening"},
					{Answer: "Psoriatic Arthritis", Next: "tb_screening"},
					{Answer: "Crohn's Disease", Next: "tb_screening"},
					{Answer: "Ulcerative Colitis", Next: "tb_screening"},
				},
				Default: &Transition{Decide: &Decision{
					Outcome: OutcomeDocsRequired,
					Reason:  "diagnosis outside labeled indications; supporting documentation required",
				}},
			},
			{
				ID:   "tb_screening",
				Text: "Does the member have a negative tuberculosis screening within the last 12 months?",
				Type: NodeYesNo,
				Role: RoleScreening,
				Transitions: []Transition{
					{Answer: "yes", Next: "dmard_trial"},
					{Answer: "no", Decide: &Decision{
						Outcome: OutcomeDocsRequired,
						Reason:  "a negative TB screening within 12 months is required before anti-TNF therapy",
					}},
				},
			},
			{
				ID:   "dmard_trial",
				Text: "Has the member tried a conventional DMARD (such as methotrexate) for at least 3 months?",
				Type: NodeYesNo,
				Transitions: []Transition{
					{Answer: "yes", Next: "infection_contra"},
					{Answer: "no", Decide: &Decision{
						Outcome: OutcomeDeny,
						Reason:  "step therapy requires a conventional DMARD trial before biologic coverage",
					}},
				},
			},
			{
				ID:   "infection_contra",
				Text: "Does the member currently have an active serious infection?",
				Type: NodeYesNo,
				Role: RoleContraindication,
				Transitions: []Transition{
					{Answer: "yes", Decide: &Decision{
						Outcome: OutcomeDeny,
						Reason:  "active serious infection contraindicates anti-TNF therapy",
					}},
					{Answer: "no", Next: "disease_duration"},
				},
			},
			{
				ID:         "disease_duration",
				Text:       "How many months has the member had this diagnosis?",
				Type:       NodeNumeric,
				Validation: &Validation{Range: &Range{Min: 0, Max: 600}},
				Transitions: []Transition{
					{Range: &Range{Min: 0, Max: 600}, Next: "clinical_notes"},
				},
				Default: &Transition{Next: "clinical_notes"},
			},
			{
				ID:   "clinical_notes",
				Text: "Any additional clinical notes for the reviewer?",
				Type: NodeText,
				Validation: &Validation{MinLength: 3},
				Transitions: []Transition{
					{Decide: &Decision{
						Outcome: OutcomeApprove,
						Reason:  "clinical criteria for anti-TNF therapy met",
					}},
				},
			},
		},
	}
}
