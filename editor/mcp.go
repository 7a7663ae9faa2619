package editor

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/htmledit/domtag"
	"github.com/hazyhaar/htmledit/idgen"
	"github.com/hazyhaar/htmledit/kit"
)

// RegisterMCP registers the editor tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerAnalyzeTool(srv)
	s.registerElementsTool(srv)
	s.registerGenerateTool(srv)
	s.registerPreviewTool(srv)
	s.registerMarkdownTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

var tokenProp = map[string]any{"type": "string", "description": "Session token returned by htmledit_analyze"}

func (s *Service) register(srv *mcp.Server, tool *mcp.Tool, ep kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	mw := kit.Chain(kit.RequestID(idgen.New), kit.Logging(s.logger, tool.Name))
	kit.RegisterMCPTool(srv, tool, mw(ep), decode)
}

// --- analyze ---

type analyzeReq struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

func (s *Service) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "htmledit_analyze",
		Description: "Open an edit session on an HTML document and list its editable elements.",
		InputSchema: inputSchema(map[string]any{
			"content":  map[string]any{"type": "string", "description": "HTML document"},
			"filename": map[string]any{"type": "string", "description": "Original file name"},
		}, []string{"content"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeReq)
		return s.AnalyzeString(ctx, r.Filename, r.Content)
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[analyzeReq]())
}

// --- elements ---

type tokenReq struct {
	Token string `json:"token"`
}

func (s *Service) registerElementsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "htmledit_elements",
		Description: "List the editable elements of the current session document.",
		InputSchema: inputSchema(map[string]any{"token": tokenProp}, []string{"token"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		els, err := s.Elements(ctx, req.(*tokenReq).Token)
		if err != nil {
			return nil, err
		}
		return map[string]any{"elements": els}, nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[tokenReq]())
}

// --- generate ---

func (s *Service) registerGenerateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "htmledit_generate",
		Description: "Apply edits to a session document. With final=true, returns the finished HTML without tracking ids on edited elements.",
		InputSchema: inputSchema(map[string]any{
			"token": tokenProp,
			"updates": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":         map[string]any{"type": "string"},
						"content":    map[string]any{"type": "string"},
						"attributes": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
					},
					"required": []string{"id"},
				},
			},
			"final": map[string]any{"type": "boolean"},
		}, []string{"token", "updates"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Generate(ctx, *req.(*GenerateRequest))
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[GenerateRequest]())
}

// --- preview ---

func (s *Service) registerPreviewTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "htmledit_preview",
		Description: "Return the current tagged HTML of a session.",
		InputSchema: inputSchema(map[string]any{"token": tokenProp}, []string{"token"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		markup, err := s.Preview(ctx, req.(*tokenReq).Token)
		if err != nil {
			return nil, err
		}
		return map[string]any{"html": markup, "tracking_attribute": domtag.AttrID}, nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[tokenReq]())
}

// --- markdown ---

func (s *Service) registerMarkdownTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "htmledit_markdown",
		Description: "Render the current session document as Markdown.",
		InputSchema: inputSchema(map[string]any{"token": tokenProp}, []string{"token"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		md, err := s.Markdown(ctx, req.(*tokenReq).Token)
		if err != nil {
			return nil, err
		}
		return map[string]any{"markdown": md}, nil
	}
	s.register(srv, tool, endpoint, kit.DecodeJSON[tokenReq]())
}
