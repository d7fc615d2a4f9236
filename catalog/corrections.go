package catalog

import "strings"

// Known speech-to-text confusions for the shipped catalog. Keys are the
// transcribed form, values the intended drug name. Applied before any
// matching so the corrected form goes through the normal exact/fuzzy path.
var transcriptionCorrections = map[string]string{
	"ozempik":    "ozempic",
	"ozempick":   "ozempic",
	"ozembic":    "ozempic",
	"o zempic":   "ozempic",
	"wagovy":     "wegovy",
	"wegovie":    "wegovy",
	"we govy":    "wegovy",
	"monjaro":    "mounjaro",
	"manjaro":    "mounjaro",
	"moon jaro":  "mounjaro",
	"humaira":    "humira",
	"who mira":   "humira",
	"hume era":   "humira",
	"in brel":    "enbrel",
	"embrel":     "enbrel",
	"semaglutid": "semaglutide",
}

// CorrectTranscription maps known phonetic mis-transcriptions to the intended
// name. Unrecognized input passes through lowercased and trimmed.
func CorrectTranscription(raw string) string {
	q := strings.ToLower(strings.TrimSpace(raw))
	if fixed, ok := transcriptionCorrections[q]; ok {
		return fixed
	}
	return q
}
