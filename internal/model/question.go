package model

// QuestionType classifies a parsed question by how it is answered.
type QuestionType string

const (
	QuestionTypeMCQ     QuestionType = "mcq"
	QuestionTypeWritten QuestionType = "written"
)

// Question is one prompt parsed from imported text.
type Question struct {
	ID      string       `json:"id"`
	Number  int          `json:"number"`
	Text    string       `json:"text"`
	Options Options      `json:"options"`
	Type    QuestionType `json:"type"`
}

// Classify sets Type from the number of options.
func (q *Question) Classify() {
	if q.Options.Len() >= 2 {
		q.Type = QuestionTypeMCQ
		return
	}
	q.Type = QuestionTypeWritten
}

// HasOption reports whether key is one of the question's option letters.
func (q *Question) HasOption(key string) bool {
	_, ok := q.Options.Get(key)
	return ok
}
