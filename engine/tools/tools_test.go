package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/WessleyAI/overflow-mcp/engine/domain"
	"github.com/WessleyAI/overflow-mcp/pkg/metrics"
)

// spySearcher records how it was called.
type spySearcher struct {
	calls int
	query string
	tags  []string
	opts  domain.SearchOptions
	byTag bool

	records []domain.Record
	err     error
}

func (s *spySearcher) Search(_ context.Context, query string, tags []string, opts domain.SearchOptions) ([]domain.Record, error) {
	s.calls++
	s.query, s.tags, s.opts = query, tags, opts
	return s.records, s.err
}

func (s *spySearcher) ByTags(_ context.Context, tags []string, opts domain.SearchOptions) ([]domain.Record, error) {
	s.calls++
	s.byTag = true
	s.tags, s.opts = tags, opts
	return s.records, s.err
}

func newDispatcher(s Searcher) *Dispatcher {
	return New(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSearchByErrorDerivesTags(t *testing.T) {
	spy := &spySearcher{}
	d := newDispatcher(spy)
	_, err := d.SearchByError(context.Background(), SearchByErrorRequest{
		ErrorMessage: "ImproperlyConfigured", Language: "Python", Technologies: []string{"django"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"python", "django"}, spy.tags); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}
	if spy.query != "ImproperlyConfigured" {
		t.Fatalf("query = %q", spy.query)
	}
}

func TestSearchByErrorWithoutTags(t *testing.T) {
	spy := &spySearcher{}
	if _, err := newDispatcher(spy).SearchByError(context.Background(), SearchByErrorRequest{ErrorMessage: "x"}); err != nil {
		t.Fatal(err)
	}
	if spy.tags != nil {
		t.Fatalf("expected nil tags, got %v", spy.tags)
	}
}

func TestSearchByErrorPassesOptions(t *testing.T) {
	spy := &spySearcher{}
	_, err := newDispatcher(spy).SearchByError(context.Background(), SearchByErrorRequest{
		ErrorMessage: "x", MinScore: domain.IntPtr(5), IncludeComments: true, Limit: 10, ResponseFormat: "markdown",
	})
	if err != nil {
		t.Fatal(err)
	}
	o := spy.opts
	if o.MinScore == nil || *o.MinScore != 5 || !o.IncludeComments || o.Limit != 10 || o.Format != domain.FormatMarkdown {
		t.Fatalf("opts = %+v", o)
	}
}

func TestAnalyzeStackTrace(t *testing.T) {
	spy := &spySearcher{}
	trace := "NullPointerException: x is null\r\n\tat com.example.Main.run(Main.java:10)\n\tat com.example.Main.main(Main.java:3)"
	_, err := newDispatcher(spy).AnalyzeStackTrace(context.Background(), AnalyzeStackTraceRequest{StackTrace: trace, Language: "Java"})
	if err != nil {
		t.Fatal(err)
	}
	if spy.query != "NullPointerException: x is null" {
		t.Fatalf("query = %q", spy.query)
	}
	if diff := cmp.Diff([]string{"java"}, spy.tags); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}
	if spy.opts.MinScore != nil {
		t.Fatal("stack trace analysis applies no score floor by default")
	}
}

func TestSearchByTags(t *testing.T) {
	spy := &spySearcher{}
	_, err := newDispatcher(spy).SearchByTags(context.Background(), SearchByTagsRequest{Tags: []string{"go", "goroutines"}})
	if err != nil {
		t.Fatal(err)
	}
	if !spy.byTag || len(spy.tags) != 2 {
		t.Fatalf("byTag=%v tags=%v", spy.byTag, spy.tags)
	}
}

func TestValidationMakesNoUpstreamCalls(t *testing.T) {
	cases := []struct {
		name string
		tool string
		args string
	}{
		{"tags missing", SearchByTags, `{}`},
		{"tags empty", SearchByTags, `{"tags":[]}`},
		{"blank tag", SearchByTags, `{"tags":["go"," "]}`},
		{"error message missing", SearchByError, `{"language":"go"}`},
		{"error message blank", SearchByError, `{"errorMessage":"   "}`},
		{"blank technology", SearchByError, `{"errorMessage":"x","language":"python","technologies":["django",""]}`},
		{"trace missing", AnalyzeStackTrace, `{"language":"java"}`},
		{"language missing", AnalyzeStackTrace, `{"stackTrace":"boom"}`},
		{"trace starts blank", AnalyzeStackTrace, `{"stackTrace":"\nat x","language":"java"}`},
		{"limit too large", SearchByError, `{"errorMessage":"x","limit":101}`},
		{"limit negative", SearchByTags, `{"tags":["go"],"limit":-1}`},
		{"bad format", SearchByError, `{"errorMessage":"x","responseFormat":"html"}`},
		{"null arguments", SearchByError, `null`},
		{"no arguments", SearchByError, ``},
		{"wrong type", SearchByTags, `{"tags":"go"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spy := &spySearcher{}
			_, err := newDispatcher(spy).Dispatch(context.Background(), c.tool, json.RawMessage(c.args))
			var terr *Error
			if !errors.As(err, &terr) || terr.Code != CodeInvalidParams {
				t.Fatalf("expected invalid params, got %v", err)
			}
			if !IsValidation(err) {
				t.Fatal("IsValidation should be true")
			}
			if spy.calls != 0 {
				t.Fatalf("expected zero upstream calls, got %d", spy.calls)
			}
		})
	}
}

func TestKnown(t *testing.T) {
	for _, info := range Catalog {
		if !Known(info.Name) {
			t.Errorf("%s should be known", info.Name)
		}
	}
	if Known("search_by_vibes") {
		t.Fatal("unlisted tool reported as known")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	_, err := newDispatcher(&spySearcher{}).Dispatch(context.Background(), "search_by_vibes", json.RawMessage(`{}`))
	var terr *Error
	if !errors.As(err, &terr) || terr.Code != CodeMethodNotFound {
		t.Fatalf("expected method not found, got %v", err)
	}
	if terr.Message != "Unknown tool: search_by_vibes" {
		t.Fatalf("message = %q", terr.Message)
	}
}

func TestDispatchRendersEnvelope(t *testing.T) {
	spy := &spySearcher{records: []domain.Record{{
		Question: domain.Question{QuestionID: 1, Title: "Q", Link: "https://so/q/1"},
		Answers:  []domain.Answer{{AnswerID: 2, Score: 1, IsAccepted: true, Body: "A"}},
	}}}
	d := newDispatcher(spy)

	resp, err := d.Dispatch(context.Background(), SearchByError, json.RawMessage(`{"errorMessage":"x","responseFormat":"markdown"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Content) != 1 || resp.Content[0].Type != "text" {
		t.Fatalf("envelope = %+v", resp)
	}
	if !strings.HasPrefix(resp.Text(), "# Q\n") {
		t.Fatalf("text = %q", resp.Text())
	}

	resp, err = d.Dispatch(context.Background(), SearchByError, json.RawMessage(`{"errorMessage":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	var recs []domain.Record
	if err := json.Unmarshal([]byte(resp.Text()), &recs); err != nil || len(recs) != 1 {
		t.Fatalf("default format should be JSON: %v", err)
	}
}

func TestUpstreamErrorClassified(t *testing.T) {
	spy := &spySearcher{err: fmt.Errorf("search: %w", &domain.UpstreamError{Status: 400, Message: "no method found with this name"})}
	_, err := newDispatcher(spy).SearchByError(context.Background(), SearchByErrorRequest{ErrorMessage: "x"})
	var terr *Error
	if !errors.As(err, &terr) || terr.Code != CodeInvalidRequest {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if terr.Message != "Stack Overflow API error: no method found with this name" {
		t.Fatalf("message = %q", terr.Message)
	}
	var uerr *domain.UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatal("cause should stay reachable")
	}
}

func TestInternalErrorClassified(t *testing.T) {
	spy := &spySearcher{err: context.DeadlineExceeded}
	_, err := newDispatcher(spy).SearchByTags(context.Background(), SearchByTagsRequest{Tags: []string{"go"}})
	var terr *Error
	if !errors.As(err, &terr) || terr.Code != CodeInternal {
		t.Fatalf("expected internal, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("cause should stay reachable")
	}
}

func TestInstrument(t *testing.T) {
	reg := metrics.New()
	d := newDispatcher(&spySearcher{})
	d.Instrument(reg)
	_, _ = d.SearchByTags(context.Background(), SearchByTagsRequest{Tags: []string{"go"}})
	_, _ = d.SearchByTags(context.Background(), SearchByTagsRequest{})

	out := reg.Render()
	for _, want := range []string{
		`overflow_tool_calls_total{tool="search_by_tags",outcome="ok"} 1`,
		`overflow_tool_calls_total{tool="search_by_tags",outcome="invalid_params"} 1`,
		`overflow_tool_duration_seconds_count{tool="search_by_tags"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
