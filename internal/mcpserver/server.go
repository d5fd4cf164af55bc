// Package mcpserver exposes the playground commands as MCP tools over
// streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/commands"
)

const (
	ToolRunCode    = "run_code"
	ToolMiriCode   = "miri_code"
	ToolCrateInfo  = "crate_info"
	ToolSearchDocs = "search_docs"
)

type Service interface {
	Evaluate(ctx context.Context, input commands.EvalInput) (commands.EvalResult, error)
	CrateInfo(ctx context.Context, name string) (commands.Reply, error)
	Docs(ctx context.Context, source, query string) (commands.Reply, error)
}

type Server struct {
	server  *sdkmcp.Server
	service Service
	logger  *slog.Logger
}

func New(service Service, version string, logger *slog.Logger) *Server {
	s := &Server{
		server:  sdkmcp.NewServer(&sdkmcp.Implementation{Name: "playbot", Version: version}, nil),
		service: service,
		logger:  logger,
	}
	s.server.AddTool(&sdkmcp.Tool{
		Name:        ToolRunCode,
		Description: "Compile and run Rust code on the playground and return its output",
		InputSchema: codeSchema("Configuration tokens such as: release nightly 2021 tests backtrace lib"),
	}, s.evaluate(false))
	s.server.AddTool(&sdkmcp.Tool{
		Name:        ToolMiriCode,
		Description: "Run Rust code under miri to detect undefined behavior",
		InputSchema: codeSchema("Configuration tokens such as: 2021 tests stacked tree"),
	}, s.evaluate(true))
	s.server.AddTool(&sdkmcp.Tool{
		Name:        ToolCrateInfo,
		Description: "Look up a crate on crates.io",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "description": "Crate name"},
			},
			"required": []string{"name"},
		},
	}, s.crateInfo)
	s.server.AddTool(&sdkmcp.Tool{
		Name:        ToolSearchDocs,
		Description: "Search the std, core or alloc documentation",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{"type": "string", "enum": []string{"std", "core", "alloc"}},
				"query":  map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	}, s.searchDocs)
	return s
}

func (s *Server) Handler() http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server { return s.server }, nil)
}

func codeSchema(paramsDescription string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":   map[string]any{"type": "string", "description": "Rust source code"},
			"params": map[string]any{"type": "string", "description": paramsDescription},
		},
		"required": []string{"code"},
	}
}

func (s *Server) evaluate(miri bool) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		var args struct {
			Code   string `json:"code"`
			Params string `json:"params"`
		}
		if err := decodeArguments(req, &args); err != nil {
			return textResult(err.Error(), true), nil
		}
		result, err := s.service.Evaluate(ctx, commands.EvalInput{Params: args.Params, Code: args.Code, Miri: miri})
		if err != nil {
			return s.errorResult(req, err), nil
		}
		content := result.Content
		if strings.TrimSpace(content) == "" {
			content = "(no output)"
		}
		return textResult(content, !result.Success), nil
	}
}

func (s *Server) crateInfo(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
	var args struct {
		Name string `json:"name"`
	}
	if err := decodeArguments(req, &args); err != nil {
		return textResult(err.Error(), true), nil
	}
	reply, err := s.service.CrateInfo(ctx, args.Name)
	if err != nil {
		return s.errorResult(req, err), nil
	}
	return textResult(reply.Text(), false), nil
}

func (s *Server) searchDocs(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
	var args struct {
		Source string `json:"source"`
		Query  string `json:"query"`
	}
	if err := decodeArguments(req, &args); err != nil {
		return textResult(err.Error(), true), nil
	}
	if strings.TrimSpace(args.Source) == "" {
		args.Source = "std"
	}
	reply, err := s.service.Docs(ctx, args.Source, args.Query)
	if err != nil {
		return s.errorResult(req, err), nil
	}
	return textResult(reply.Text(), false), nil
}

func (s *Server) errorResult(req *sdkmcp.CallToolRequest, err error) *sdkmcp.CallToolResult {
	if !boterr.IsUserError(err) {
		tool := ""
		if req != nil && req.Params != nil {
			tool = req.Params.Name
		}
		s.logger.Error("mcp tool failed", "tool", tool, "error", err)
	}
	return textResult(boterr.UserFacing(err), true)
}

func decodeArguments(req *sdkmcp.CallToolRequest, target any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, target); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func textResult(text string, isError bool) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
		IsError: isError,
	}
}
