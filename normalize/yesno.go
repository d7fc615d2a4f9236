package normalize

import "regexp"

var yesSynonyms = []string{"yes", "y", "yeah", "yep", "sure", "okay", "correct", "right", "true"}
var noSynonyms = []string{"no", "n", "nope", "nah", "negative", "false", "incorrect", "wrong"}

var yesNoWordPatterns = buildWordPatterns()

func buildWordPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(yesSynonyms)+len(noSynonyms))
	for _, syn := range append(append([]string{}, yesSynonyms...), noSynonyms...) {
		patterns[syn] = regexp.MustCompile(`\b` + regexp.QuoteMeta(syn) + `\b`)
	}
	return patterns
}

// normalizeYesNo maps an answer onto "yes"/"no". Exact synonym membership is
// checked first; failing that, synonyms are searched for inside the answer on
// word boundaries (so "no" never fires inside "know", nor "correct" inside
// "incorrect"). An answer containing synonyms of both polarities is ambiguous
// and always yields clarification.
func (n *Normalizer) normalizeYesNo(trimmed string) MatchResult {
	for _, syn := range yesSynonyms {
		if trimmed == syn {
			return accepted("yes")
		}
	}
	for _, syn := range noSynonyms {
		if trimmed == syn {
			return accepted("no")
		}
	}

	foundYes := containsAny(trimmed, yesSynonyms)
	foundNo := containsAny(trimmed, noSynonyms)

	switch {
	case foundYes && foundNo:
		return clarify("the answer contains both yes and no; please answer with just one")
	case foundYes:
		return accepted("yes")
	case foundNo:
		return accepted("no")
	}
	return clarify("please answer yes or no")
}

func containsAny(answer string, synonyms []string) bool {
	for _, syn := range synonyms {
		if yesNoWordPatterns[syn].MatchString(answer) {
			return true
		}
	}
	return false
}
