// Package domain defines the core Q&A types, search options, and error
// taxonomy shared by the fetchers, the search orchestrator, the formatter,
// and the tool dispatcher.
package domain

// Question is a question returned by the upstream search or listing call.
// JSON field names follow the Stack Exchange wire format.
type Question struct {
	QuestionID  int64    `json:"question_id"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Score       int      `json:"score"`
	AnswerCount int      `json:"answer_count"`
	Link        string   `json:"link"`
	Tags        []string `json:"tags,omitempty"`
	IsAnswered  bool     `json:"is_answered"`
}

// Answer is an answer to a question.
type Answer struct {
	AnswerID   int64  `json:"answer_id"`
	QuestionID int64  `json:"question_id"`
	Body       string `json:"body"`
	Score      int    `json:"score"`
	IsAccepted bool   `json:"is_accepted"`
}

// Comment is a comment on a question or an answer.
type Comment struct {
	CommentID int64  `json:"comment_id"`
	PostID    int64  `json:"post_id"`
	Body      string `json:"body"`
	Score     int    `json:"score"`
}

// Record bundles one question with its answers (descending score) and,
// when requested, its comments.
type Record struct {
	Question Question       `json:"question"`
	Answers  []Answer       `json:"answers"`
	Comments *CommentBundle `json:"comments,omitempty"`
}

// CommentBundle holds the question's comments plus per-answer comments.
type CommentBundle struct {
	Question []Comment      `json:"question"`
	Answers  AnswerComments `json:"answers"`
}

// Format selects how records are rendered.
type Format string

const (
	FormatJSON     Format = "json"     // structured
	FormatMarkdown Format = "markdown" // readable text
)

// ParseFormat maps a request value to a Format. Empty selects FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	default:
		return "", NewValidationError("responseFormat", `must be "json" or "markdown"`)
	}
}

// SearchOptions controls filtering and expansion of a search.
type SearchOptions struct {
	// MinScore, when set and non-zero, drops questions scoring below it
	// (inclusive floor). Zero applies no floor.
	MinScore *int
	// Limit is the upstream page size. Zero leaves the upstream default.
	Limit           int
	IncludeComments bool
	Format          Format
}

// Keep reports whether a question passes the MinScore floor.
func (o SearchOptions) Keep(q Question) bool {
	return o.MinScore == nil || *o.MinScore == 0 || q.Score >= *o.MinScore
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
