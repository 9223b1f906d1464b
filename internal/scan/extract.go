package scan

import "regexp"

// Two independent pattern families feed the candidate list:
//
//   - capRunRE matches maximal runs of capitalized word tokens, one to four
//     words long ("Marcus Webb", "Alderman Codex").
//   - genitiveRE matches "X of Y" phrases ("Order of the Silent Flame",
//     "Bank of Harrowgate"), allowing up to two extra capitalized words
//     after the "of".
//
// Matches are returned raw, duplicates retained — frequency is tallied by
// the caller after normalization.
var (
	capRunRE   = regexp.MustCompile(`[A-Z][a-z'’-]+(?: [A-Z][a-z'’-]+){0,3}`)
	genitiveRE = regexp.MustCompile(`[A-Z][a-z'’-]+(?: [A-Z][a-z'’-]+){0,3} of (?:the )?[A-Z][a-z'’-]+(?: [A-Z][a-z'’-]+){0,2}`)
)

// extractSpans scans prose for capitalized phrase spans. It never fails:
// empty or pattern-free prose yields an empty list.
func extractSpans(prose string) []string {
	if prose == "" {
		return nil
	}
	spans := capRunRE.FindAllString(prose, -1)
	spans = append(spans, genitiveRE.FindAllString(prose, -1)...)
	return spans
}
