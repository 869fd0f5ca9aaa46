package toolserver

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/overflow-mcp/engine/tools"
	"github.com/WessleyAI/overflow-mcp/pkg/natsutil"
)

// QueueGroup spreads tool requests across server instances.
const QueueGroup = "overflow-mcp"

// Reply is the NATS response to a tool request.
type Reply struct {
	Content []tools.ContentBlock `json:"content,omitempty"`
	Error   *ReplyError          `json:"error,omitempty"`
}

// ReplyError describes a failed tool call.
type ReplyError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Subject returns the request subject for a tool.
func Subject(prefix, tool string) string {
	return prefix + "." + tool
}

// ServeNATS subscribes every tool under prefix ("{prefix}.{tool}"). The
// request payload is the tool's argument object. Callers unsubscribe the
// returned subscriptions, or drain the connection, to stop serving.
func ServeNATS(nc *nats.Conn, prefix string, d *tools.Dispatcher, logger *slog.Logger) ([]*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	subs := make([]*nats.Subscription, 0, len(tools.Catalog))
	for _, info := range tools.Catalog {
		name := info.Name
		sub, err := natsutil.Serve(nc, Subject(prefix, name), QueueGroup, func(ctx context.Context, data []byte) Reply {
			resp, err := d.Dispatch(ctx, name, data)
			if err != nil {
				terr := tools.Classify(err)
				return Reply{Error: &ReplyError{Code: int(terr.Code), Message: terr.Message}}
			}
			return Reply{Content: resp.Content}
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, err
		}
		subs = append(subs, sub)
		logger.Info("nats tool subscribed", "subject", sub.Subject)
	}
	return subs, nil
}
