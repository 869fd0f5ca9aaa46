package tools

import (
	"strings"

	"github.com/WessleyAI/overflow-mcp/engine/domain"
)

// Tool names.
const (
	SearchByError     = "search_by_error"
	SearchByTags      = "search_by_tags"
	AnalyzeStackTrace = "analyze_stack_trace"
)

// MaxLimit is the largest page size the upstream accepts.
const MaxLimit = 100

// Info describes a tool for listing.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog lists the tools in a stable order.
var Catalog = []Info{
	{SearchByError, "Search Stack Overflow for error-related questions"},
	{SearchByTags, "Search Stack Overflow questions by tags"},
	{AnalyzeStackTrace, "Analyze stack trace and find relevant solutions"},
}

// Known reports whether name is in the Catalog.
func Known(name string) bool {
	for _, info := range Catalog {
		if info.Name == name {
			return true
		}
	}
	return false
}

// SearchByErrorRequest searches by error text, optionally narrowed to a
// language and technologies.
type SearchByErrorRequest struct {
	ErrorMessage    string   `json:"errorMessage" jsonschema:"error message to search for"`
	Language        string   `json:"language,omitempty" jsonschema:"programming language, used as the first tag"`
	Technologies    []string `json:"technologies,omitempty" jsonschema:"additional tags such as frameworks or libraries"`
	MinScore        *int     `json:"minScore,omitempty" jsonschema:"drop questions scoring below this"`
	IncludeComments bool     `json:"includeComments,omitempty" jsonschema:"fetch question and answer comments"`
	ResponseFormat  string   `json:"responseFormat,omitempty" jsonschema:"json (default) or markdown"`
	Limit           int      `json:"limit,omitempty" jsonschema:"maximum number of questions, 1 to 100"`
}

// SearchByTagsRequest lists top-voted questions carrying every tag.
type SearchByTagsRequest struct {
	Tags            []string `json:"tags" jsonschema:"tags every question must carry"`
	MinScore        *int     `json:"minScore,omitempty" jsonschema:"drop questions scoring below this"`
	IncludeComments bool     `json:"includeComments,omitempty" jsonschema:"fetch question and answer comments"`
	ResponseFormat  string   `json:"responseFormat,omitempty" jsonschema:"json (default) or markdown"`
	Limit           int      `json:"limit,omitempty" jsonschema:"maximum number of questions, 1 to 100"`
}

// AnalyzeStackTraceRequest searches by the first line of a stack trace.
type AnalyzeStackTraceRequest struct {
	StackTrace      string `json:"stackTrace" jsonschema:"full stack trace; its first line is the search query"`
	Language        string `json:"language" jsonschema:"programming language of the trace"`
	MinScore        *int   `json:"minScore,omitempty" jsonschema:"drop questions scoring below this"`
	IncludeComments bool   `json:"includeComments,omitempty" jsonschema:"fetch question and answer comments"`
	ResponseFormat  string `json:"responseFormat,omitempty" jsonschema:"json (default) or markdown"`
	Limit           int    `json:"limit,omitempty" jsonschema:"maximum number of questions, 1 to 100"`
}

// Tags returns the language (lower-cased) followed by the technologies, or
// nil when both are empty.
func (r SearchByErrorRequest) Tags() []string {
	var tags []string
	if r.Language != "" {
		tags = append(tags, strings.ToLower(r.Language))
	}
	return append(tags, r.Technologies...)
}

// Validate checks required fields before any network call.
func (r SearchByErrorRequest) Validate() error {
	if strings.TrimSpace(r.ErrorMessage) == "" {
		return domain.NewValidationError("errorMessage", "is required")
	}
	for _, t := range r.Technologies {
		if strings.TrimSpace(t) == "" {
			return domain.NewValidationError("technologies", "must not contain blank entries")
		}
	}
	return nil
}

// Options maps the request onto search options.
func (r SearchByErrorRequest) Options() (domain.SearchOptions, error) {
	return searchOptions(r.MinScore, r.Limit, r.IncludeComments, r.ResponseFormat)
}

// Validate checks required fields before any network call.
func (r SearchByTagsRequest) Validate() error {
	if len(r.Tags) == 0 {
		return domain.NewValidationError("tags", "is required")
	}
	for _, t := range r.Tags {
		if strings.TrimSpace(t) == "" {
			return domain.NewValidationError("tags", "must not contain blank entries")
		}
	}
	return nil
}

// Options maps the request onto search options.
func (r SearchByTagsRequest) Options() (domain.SearchOptions, error) {
	return searchOptions(r.MinScore, r.Limit, r.IncludeComments, r.ResponseFormat)
}

// Query returns the trace's first line, which carries the error signature.
func (r AnalyzeStackTraceRequest) Query() string {
	line, _, _ := strings.Cut(r.StackTrace, "\n")
	return strings.TrimSuffix(line, "\r")
}

// Tags returns the lower-cased language.
func (r AnalyzeStackTraceRequest) Tags() []string {
	return []string{strings.ToLower(r.Language)}
}

// Validate checks required fields before any network call.
func (r AnalyzeStackTraceRequest) Validate() error {
	if strings.TrimSpace(r.StackTrace) == "" {
		return domain.NewValidationError("stackTrace", "is required")
	}
	if strings.TrimSpace(r.Query()) == "" {
		return domain.NewValidationError("stackTrace", "first line must carry the error")
	}
	if strings.TrimSpace(r.Language) == "" {
		return domain.NewValidationError("language", "is required")
	}
	return nil
}

// Options maps the request onto search options. No score floor applies
// unless the caller sets one.
func (r AnalyzeStackTraceRequest) Options() (domain.SearchOptions, error) {
	return searchOptions(r.MinScore, r.Limit, r.IncludeComments, r.ResponseFormat)
}

func searchOptions(minScore *int, limit int, comments bool, format string) (domain.SearchOptions, error) {
	if limit < 0 || limit > MaxLimit {
		return domain.SearchOptions{}, domain.NewValidationError("limit", "must be between 1 and 100")
	}
	f, err := domain.ParseFormat(format)
	if err != nil {
		return domain.SearchOptions{}, err
	}
	return domain.SearchOptions{
		MinScore:        minScore,
		Limit:           limit,
		IncludeComments: comments,
		Format:          f,
	}, nil
}
