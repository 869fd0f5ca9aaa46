package toolserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/WessleyAI/overflow-mcp/engine/tools"
	"github.com/WessleyAI/overflow-mcp/pkg/metrics"
	"github.com/WessleyAI/overflow-mcp/pkg/mid"
)

const maxBodyBytes = 1 << 20

// HTTPOptions configures the HTTP handler.
type HTTPOptions struct {
	CORSOrigin   string
	InboundRPS   float64
	InboundBurst int
	Metrics      *metrics.Registry
}

// errorBody is the JSON body of a failed tool call.
type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// NewHTTP returns the HTTP handler:
//
//	POST /mcp/{tool}  tool arguments in, content envelope out
//	GET  /api/health
//	GET  /metrics     when opts.Metrics is set
func NewHTTP(d *tools.Dispatcher, opts HTTPOptions, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /mcp/{tool}", handleTool(d, logger))
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	chain := []mid.Middleware{
		mid.Recover(logger),
		mid.RequestID(),
		mid.Logger(logger),
		mid.OTel(ServerName),
	}
	if opts.CORSOrigin != "" {
		chain = append(chain, mid.CORS(opts.CORSOrigin))
	}
	if opts.InboundRPS > 0 {
		burst := opts.InboundBurst
		if burst <= 0 {
			burst = 1
		}
		chain = append(chain, mid.RateLimit(opts.InboundRPS, burst))
	}
	return mid.Chain(mux, chain...)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleTool(d *tools.Dispatcher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("tool")
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, &tools.Error{Code: tools.CodeInvalidParams, Message: "read body: " + err.Error()})
			return
		}

		resp, err := d.Dispatch(r.Context(), name, body)
		if err != nil {
			terr := tools.Classify(err)
			if terr.Code == tools.CodeInternal {
				logger.Error("tool call failed", "tool", name, "err", err, "request_id", mid.RequestIDFrom(r.Context()))
			}
			writeError(w, terr)
			return
		}

		if wantsHTML(r) && requestsMarkdown(body) {
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(resp.Text()), &buf); err == nil {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write(buf.Bytes())
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func writeError(w http.ResponseWriter, terr *tools.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(terr.Code))
	json.NewEncoder(w).Encode(errorBody{Error: terr.Message, Code: int(terr.Code)})
}

func statusFor(code tools.Code) int {
	switch code {
	case tools.CodeInvalidParams:
		return http.StatusBadRequest
	case tools.CodeMethodNotFound:
		return http.StatusNotFound
	case tools.CodeInvalidRequest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	html := strings.Index(accept, "text/html")
	if html < 0 {
		return false
	}
	js := strings.Index(accept, "application/json")
	return js < 0 || html < js
}

// requestsMarkdown reports whether the arguments asked for markdown output.
func requestsMarkdown(args []byte) bool {
	var v struct {
		ResponseFormat string `json:"responseFormat"`
	}
	return json.Unmarshal(args, &v) == nil && v.ResponseFormat == "markdown"
}
