// Package tools validates tool requests, derives search parameters, runs the
// search and renders the result into a text content envelope.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/WessleyAI/overflow-mcp/engine/domain"
	"github.com/WessleyAI/overflow-mcp/engine/format"
	"github.com/WessleyAI/overflow-mcp/pkg/metrics"
)

// Searcher runs searches and expands them into records.
type Searcher interface {
	Search(ctx context.Context, query string, tags []string, opts domain.SearchOptions) ([]domain.Record, error)
	ByTags(ctx context.Context, tags []string, opts domain.SearchOptions) ([]domain.Record, error)
}

// ContentBlock is one piece of tool output.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Response is the envelope returned for every successful call.
type Response struct {
	Content []ContentBlock `json:"content"`
}

// Text returns the concatenated text of all blocks.
func (r Response) Text() string {
	var b bytes.Buffer
	for _, c := range r.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

func textResponse(s string) Response {
	return Response{Content: []ContentBlock{{Type: "text", Text: s}}}
}

// Dispatcher serves the three tools.
type Dispatcher struct {
	search Searcher
	logger *slog.Logger
	reg    *metrics.Registry
}

// New creates a Dispatcher.
func New(search Searcher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{search: search, logger: logger}
}

// Instrument records per-tool call counts and latency on reg.
func (d *Dispatcher) Instrument(reg *metrics.Registry) {
	d.reg = reg
}

// SearchByError runs the search_by_error tool.
func (d *Dispatcher) SearchByError(ctx context.Context, req SearchByErrorRequest) (Response, error) {
	return d.observe(SearchByError, func() (Response, error) {
		if err := req.Validate(); err != nil {
			return Response{}, err
		}
		opts, err := req.Options()
		if err != nil {
			return Response{}, err
		}
		recs, err := d.search.Search(ctx, req.ErrorMessage, req.Tags(), opts)
		return render(recs, opts, err)
	})
}

// SearchByTags runs the search_by_tags tool.
func (d *Dispatcher) SearchByTags(ctx context.Context, req SearchByTagsRequest) (Response, error) {
	return d.observe(SearchByTags, func() (Response, error) {
		if err := req.Validate(); err != nil {
			return Response{}, err
		}
		opts, err := req.Options()
		if err != nil {
			return Response{}, err
		}
		recs, err := d.search.ByTags(ctx, req.Tags, opts)
		return render(recs, opts, err)
	})
}

// AnalyzeStackTrace runs the analyze_stack_trace tool.
func (d *Dispatcher) AnalyzeStackTrace(ctx context.Context, req AnalyzeStackTraceRequest) (Response, error) {
	return d.observe(AnalyzeStackTrace, func() (Response, error) {
		if err := req.Validate(); err != nil {
			return Response{}, err
		}
		opts, err := req.Options()
		if err != nil {
			return Response{}, err
		}
		recs, err := d.search.Search(ctx, req.Query(), req.Tags(), opts)
		return render(recs, opts, err)
	})
}

// Dispatch decodes raw JSON arguments for the named tool and runs it.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) (Response, error) {
	switch name {
	case SearchByError:
		var req SearchByErrorRequest
		if err := decode(args, &req); err != nil {
			return Response{}, err
		}
		return d.SearchByError(ctx, req)
	case SearchByTags:
		var req SearchByTagsRequest
		if err := decode(args, &req); err != nil {
			return Response{}, err
		}
		return d.SearchByTags(ctx, req)
	case AnalyzeStackTrace:
		var req AnalyzeStackTraceRequest
		if err := decode(args, &req); err != nil {
			return Response{}, err
		}
		return d.AnalyzeStackTrace(ctx, req)
	default:
		return Response{}, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("Unknown tool: %s", name)}
	}
}

func decode(args json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &Error{Code: CodeInvalidParams, Message: "Arguments are required"}
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid arguments: " + err.Error(), Err: err}
	}
	return nil
}

func render(recs []domain.Record, opts domain.SearchOptions, err error) (Response, error) {
	if err != nil {
		return Response{}, err
	}
	text, err := format.Render(recs, opts.Format)
	if err != nil {
		return Response{}, err
	}
	return textResponse(text), nil
}

// observe classifies the outcome of a call, logs it and records metrics.
func (d *Dispatcher) observe(tool string, call func() (Response, error)) (Response, error) {
	start := time.Now()
	resp, err := call()
	var terr *Error
	if err != nil {
		terr = Classify(err)
	}

	outcome := "ok"
	if terr != nil {
		outcome = terr.Code.String()
		d.logger.Warn("tool call failed", "tool", tool, "code", outcome, "error", err)
	} else {
		d.logger.Info("tool call", "tool", tool, "took", time.Since(start))
	}
	if d.reg != nil {
		d.reg.Counter(metrics.WithLabels("overflow_tool_calls_total", "tool", tool, "outcome", outcome),
			"Tool invocations by outcome.").Inc()
		d.reg.Histogram(metrics.WithLabels("overflow_tool_duration_seconds", "tool", tool),
			"Tool latency.", nil).Since(start)
	}

	if terr != nil {
		return Response{}, terr
	}
	return resp, nil
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Code == CodeInvalidParams
}
