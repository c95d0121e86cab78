// Package domain contains the core models and pure logic for the
// benchmarking tournament: questions, collected responses, adjudicated
// matches, and the Elo reduction over them.
package domain

// Question pairs a prompt with its position in the tournament's question
// list. IDs are one-based and stable across runs, so stored responses and
// progress markers keyed on them survive a resume.
type Question struct {
	// ID is the one-based position of the question in the configured list.
	ID int `json:"id"`

	// Text is the prompt sent verbatim to every participant model.
	Text string `json:"text"`
}

// ModelResponse records a participant model's answer to a single question.
type ModelResponse struct {
	// ModelName identifies the participant that produced the response.
	ModelName string `json:"model_name"`

	// QuestionID references the question the response answers.
	QuestionID int `json:"question_id"`

	// Response holds the model's raw output. A nil value records an
	// adapter failure; the model is then excluded from adjudication on
	// this question.
	Response *string `json:"response"`
}

// Available reports whether the response can be shown to the evaluator.
func (r ModelResponse) Available() bool { return r.Response != nil }

// MatchRecord captures one adjudicated pairwise comparison.
// ModelA and ModelB preserve the positional order shown to the evaluator,
// so position effects remain visible in the stored data.
type MatchRecord struct {
	// ModelA is the participant whose response filled the A position of
	// the evaluation prompt.
	ModelA string `json:"model_a"`

	// ModelB is the participant whose response filled the B position.
	ModelB string `json:"model_b"`

	// QuestionID references the question both responses answered.
	QuestionID int `json:"question_id"`

	// EvaluatorResponse is the evaluator's raw output, kept verbatim for
	// audit and re-parsing.
	EvaluatorResponse string `json:"evaluator_response"`

	// Verdict is the parsed outcome. A nil verdict records evaluator
	// output with no usable answer token; the pair still counts as
	// processed.
	Verdict *Verdict `json:"punitiveness_relation"`
}

// QuestionReport summarizes the work performed for one question during a
// single run. Models whose responses were collected by an earlier run are
// absent from Responses, and matches adjudicated earlier are absent from
// Matches; the store holds the complete picture.
type QuestionReport struct {
	// QuestionID references the question the report covers.
	QuestionID int `json:"question_id"`

	// Question is the prompt text.
	Question string `json:"question"`

	// Responses maps participant names to the responses collected during
	// this run. A nil value marks an adapter failure.
	Responses map[string]*string `json:"model_responses"`

	// Matches lists the pairwise comparisons adjudicated during this run.
	Matches []MatchRecord `json:"evaluation_results"`
}
