// Package search orchestrates a question lookup and its dependent answer and
// comment fetches into ordered records.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/WessleyAI/overflow-mcp/engine/domain"
	"github.com/WessleyAI/overflow-mcp/engine/stackexchange"
	"github.com/WessleyAI/overflow-mcp/pkg/fn"
)

// API is the subset of the Stack Exchange client the orchestrator needs.
type API interface {
	Search(ctx context.Context, q stackexchange.Query) ([]domain.Question, error)
	QuestionsByTags(ctx context.Context, q stackexchange.Query) ([]domain.Question, error)
	Answers(ctx context.Context, questionID int64) ([]domain.Answer, error)
	Comments(ctx context.Context, postID int64) ([]domain.Comment, error)
}

// Options configures fan-out.
type Options struct {
	// Workers bounds how many questions expand at once. 1 expands strictly
	// in order.
	Workers int
	// CommentWorkers bounds per-answer comment fetches within one question.
	CommentWorkers int
}

// DefaultOptions returns the default fan-out width.
func DefaultOptions() Options {
	return Options{Workers: 4, CommentWorkers: 4}
}

// Service builds records from upstream lookups.
type Service struct {
	api    API
	opts   Options
	logger *slog.Logger
}

// New creates a Service.
func New(api API, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}
	if opts.CommentWorkers <= 0 {
		opts.CommentWorkers = DefaultOptions().CommentWorkers
	}
	return &Service{api: api, opts: opts, logger: logger}
}

// Search runs a free-text search narrowed by tags and expands every question
// that passes the score floor. Records come back in upstream order. Any
// failed fetch fails the whole call.
func (s *Service) Search(ctx context.Context, query string, tags []string, opts domain.SearchOptions) ([]domain.Record, error) {
	list := func(ctx context.Context, q stackexchange.Query) fn.Result[[]domain.Question] {
		return fn.FromPair(s.api.Search(ctx, q))
	}
	return s.run(ctx, "search.questions", list, stackexchange.Query{Text: query, Tags: tags, PageSize: opts.Limit}, opts)
}

// ByTags lists the top-voted questions carrying every tag and expands them
// like Search.
func (s *Service) ByTags(ctx context.Context, tags []string, opts domain.SearchOptions) ([]domain.Record, error) {
	list := func(ctx context.Context, q stackexchange.Query) fn.Result[[]domain.Question] {
		return fn.FromPair(s.api.QuestionsByTags(ctx, q))
	}
	return s.run(ctx, "search.by_tags", list, stackexchange.Query{Tags: tags, PageSize: opts.Limit}, opts)
}

func (s *Service) run(ctx context.Context, span string, list fn.Stage[stackexchange.Query, []domain.Question], q stackexchange.Query, opts domain.SearchOptions) ([]domain.Record, error) {
	start := time.Now()
	pipeline := fn.Then(
		fn.Then(
			fn.TracedStage(span, list),
			fn.MapStage(func(qs []domain.Question) []domain.Question {
				return fn.Filter(qs, opts.Keep)
			}),
		),
		fn.TracedStage("search.expand", fn.BatchStage(s.opts.Workers, s.expandStage(opts.IncludeComments))),
	)

	records, err := pipeline(ctx, q).Unwrap()
	if err != nil {
		s.logger.Warn("search failed", "query", q.Text, "tags", q.Tags, "error", err)
		return nil, fmt.Errorf("search: %w", err)
	}
	s.logger.Debug("search complete", "query", q.Text, "tags", q.Tags,
		"records", len(records), "took", time.Since(start))
	return records, nil
}

func (s *Service) expandStage(withComments bool) fn.Stage[domain.Question, domain.Record] {
	return func(ctx context.Context, q domain.Question) fn.Result[domain.Record] {
		answers, err := s.api.Answers(ctx, q.QuestionID)
		if err != nil {
			return fn.Err[domain.Record](fmt.Errorf("question %d: %w", q.QuestionID, err))
		}
		rec := domain.Record{Question: q, Answers: answers}
		if !withComments {
			return fn.Ok(rec)
		}
		bundle, err := s.comments(ctx, q.QuestionID, answers)
		if err != nil {
			return fn.Err[domain.Record](fmt.Errorf("question %d: %w", q.QuestionID, err))
		}
		rec.Comments = bundle
		return fn.Ok(rec)
	}
}

// comments fetches the question's comments, then every answer's comments.
// Answers without an id are skipped.
func (s *Service) comments(ctx context.Context, questionID int64, answers []domain.Answer) (*domain.CommentBundle, error) {
	qc, err := s.api.Comments(ctx, questionID)
	if err != nil {
		return nil, err
	}

	withID := fn.Filter(answers, func(a domain.Answer) bool { return a.AnswerID != 0 })
	results := fn.ParMapResult(withID, s.opts.CommentWorkers, func(a domain.Answer) fn.Result[domain.AnswerComment] {
		cs, err := s.api.Comments(ctx, a.AnswerID)
		if err != nil {
			return fn.Err[domain.AnswerComment](fmt.Errorf("answer %d: %w", a.AnswerID, err))
		}
		return fn.Ok(domain.AnswerComment{AnswerID: a.AnswerID, Comments: cs})
	})
	perAnswer, err := fn.Collect(results).Unwrap()
	if err != nil {
		return nil, err
	}
	return &domain.CommentBundle{Question: qc, Answers: domain.AnswerComments(perAnswer)}, nil
}
