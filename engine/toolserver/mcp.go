// Package toolserver exposes the tool dispatcher over MCP (stdio), HTTP and
// NATS request/reply.
package toolserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/WessleyAI/overflow-mcp/engine/tools"
	"github.com/WessleyAI/overflow-mcp/pkg/fn"
)

// ServerName identifies the server to MCP clients.
const ServerName = "stackoverflow-mcp"

// NewMCP registers the three tools on a new MCP server. Argument schemas are
// inferred from the request types.
func NewMCP(d *tools.Dispatcher, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.SearchByError,
		Description: description(tools.SearchByError),
	}, mcpHandler(d.SearchByError))

	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.SearchByTags,
		Description: description(tools.SearchByTags),
	}, mcpHandler(d.SearchByTags))

	mcp.AddTool(server, &mcp.Tool{
		Name:        tools.AnalyzeStackTrace,
		Description: description(tools.AnalyzeStackTrace),
	}, mcpHandler(d.AnalyzeStackTrace))

	server.AddReceivingMiddleware(rejectUnknownTools)
	return server
}

// rejectUnknownTools answers tools/call for a name outside the catalog with
// method-not-found, matching the HTTP and NATS transports.
func rejectUnknownTools(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		if call, ok := req.(*mcp.CallToolRequest); ok && call.Params != nil && !tools.Known(call.Params.Name) {
			return nil, &jsonrpc.Error{
				Code:    int64(tools.CodeMethodNotFound),
				Message: fmt.Sprintf("Unknown tool: %s", call.Params.Name),
			}
		}
		return next(ctx, method, req)
	}
}

// mcpHandler adapts a typed dispatcher method. Failures surface as JSON-RPC
// errors carrying the dispatcher's code.
func mcpHandler[Req any](call func(context.Context, Req) (tools.Response, error)) mcp.ToolHandlerFor[Req, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, req Req) (*mcp.CallToolResult, any, error) {
		resp, err := call(ctx, req)
		if err != nil {
			terr := tools.Classify(err)
			return nil, nil, &jsonrpc.Error{Code: int64(terr.Code), Message: terr.Message}
		}
		content := fn.Map(resp.Content, func(c tools.ContentBlock) mcp.Content {
			return &mcp.TextContent{Text: c.Text}
		})
		return &mcp.CallToolResult{Content: content}, nil, nil
	}
}

func description(name string) string {
	for _, info := range tools.Catalog {
		if info.Name == name {
			return info.Description
		}
	}
	return ""
}
