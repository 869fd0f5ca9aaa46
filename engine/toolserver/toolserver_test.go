package toolserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/WessleyAI/overflow-mcp/engine/domain"
	"github.com/WessleyAI/overflow-mcp/engine/tools"
)

// fakeSearcher returns canned records and counts calls.
type fakeSearcher struct {
	calls   atomic.Int32
	records []domain.Record
	err     error
}

func (f *fakeSearcher) Search(context.Context, string, []string, domain.SearchOptions) ([]domain.Record, error) {
	f.calls.Add(1)
	return f.records, f.err
}

func (f *fakeSearcher) ByTags(context.Context, []string, domain.SearchOptions) ([]domain.Record, error) {
	f.calls.Add(1)
	return f.records, f.err
}

var errBoom = errors.New("boom")

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleRecords() []domain.Record {
	return []domain.Record{{
		Question: domain.Question{QuestionID: 1, Title: "Why is x null?", Score: 12, AnswerCount: 1, Link: "https://stackoverflow.com/q/1"},
		Answers:  []domain.Answer{{AnswerID: 2, QuestionID: 1, Score: 8, IsAccepted: true, Body: "Initialize **x** first."}},
	}}
}

func newDispatcher(f *fakeSearcher) *tools.Dispatcher {
	return tools.New(f, quiet())
}
