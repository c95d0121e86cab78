package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// answerPattern matches evaluator answer delimiters. Matching is
// case-insensitive and the capture is non-greedy, so stacked delimiters
// yield separate matches rather than one spanning match.
var answerPattern = regexp.MustCompile(`(?i)<answer>(.*?)</answer>`)

// Verdict names the winner and loser of a single adjudicated match.
// It serializes as the two-element ["winner","loser"] array stored in the
// relation column; a nil *Verdict serializes as JSON null.
type Verdict struct {
	// Winner is the model whose response the evaluator selected.
	Winner string

	// Loser is the other model in the pair.
	Loser string
}

// MarshalJSON encodes the verdict as a ["winner","loser"] pair.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{v.Winner, v.Loser})
}

// UnmarshalJSON decodes a ["winner","loser"] pair.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decoding relation: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: want two entries, got %d", ErrMalformedRelation, len(pair))
	}
	v.Winner, v.Loser = pair[0], pair[1]
	return nil
}

// ParseVerdict extracts the adjudication outcome from raw evaluator
// output. The last answer delimiter in the text wins, and its token is
// compared case-insensitively after trimming surrounding whitespace.
// Output with no delimiter, or with a token other than A or B, yields a
// nil verdict; callers persist nil as a null relation and still mark the
// pair processed.
func ParseVerdict(evaluatorResponse, modelA, modelB string) *Verdict {
	matches := answerPattern.FindAllStringSubmatch(evaluatorResponse, -1)
	if len(matches) == 0 {
		return nil
	}

	caser := cases.Fold()
	switch caser.String(strings.TrimSpace(matches[len(matches)-1][1])) {
	case "a":
		return &Verdict{Winner: modelA, Loser: modelB}
	case "b":
		return &Verdict{Winner: modelB, Loser: modelA}
	default:
		return nil
	}
}
