package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/devpractices/qa-assistant/internal/service"
)

// Server implements the Model Context Protocol (MCP) server. It exposes the
// knowledge base as tools for external AI agents.
type Server struct {
	queryService *service.QueryService
	port         string
}

// NewServer creates a new MCP server.
func NewServer(queryService *service.QueryService, port string) *Server {
	return &Server{queryService: queryService, port: port}
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Start begins the MCP server on the configured port.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)

	slog.Info("MCP server starting", "port", s.port)
	return http.ListenAndServe(":"+s.port, mux)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, -32700, "parse error")
		return
	}

	var result interface{}
	var err error

	switch req.Method {
	case "tools/list":
		result = s.listTools()
	case "tools/call":
		result, err = s.callTool(r.Context(), req.Params)
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    "qa-knowledge-base",
				"version": "1.0.0",
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	default:
		writeError(w, req.ID, -32601, "method not found")
		return
	}

	if err != nil {
		writeError(w, req.ID, -32603, err.Error())
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) listTools() map[string]interface{} {
	tools := []Tool{
		{
			Name:        "ask_question",
			Description: "Ask a question against the QA knowledge base and get a cited answer",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"question": {"type": "string", "description": "Natural-language question"},
					"session_id": {"type": "string", "description": "Optional conversation session id"}
				},
				"required": ["question"]
			}`),
		},
		{
			Name:        "search_knowledge_base",
			Description: "Retrieve the most similar knowledge-base chunks for a query, without generating an answer",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Search text"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "get_stats",
			Description: "Report knowledge base size: document, chunk and session counts",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {}
			}`),
		},
	}
	return map[string]interface{}{"tools": tools}
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	switch req.Name {
	case "ask_question":
		var args struct {
			Question  string `json:"question"`
			SessionID string `json:"session_id"`
		}
		json.Unmarshal(req.Arguments, &args)

		result, err := s.queryService.Query(ctx, args.Question, args.SessionID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": result.Answer},
			},
			"sources":    result.Sources,
			"confidence": result.Confidence,
		}, nil

	case "search_knowledge_base":
		var args struct {
			Query string `json:"query"`
		}
		json.Unmarshal(req.Arguments, &args)

		matches, err := s.queryService.Search(ctx, args.Query)
		if err != nil {
			return nil, err
		}
		results := make([]map[string]interface{}, 0, len(matches))
		for _, m := range matches {
			results = append(results, map[string]interface{}{
				"text":   m.Record.Text,
				"source": m.Record.SourcePath,
				"title":  m.Record.DocumentTitle,
				"score":  m.Score,
			})
		}
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": fmt.Sprintf("%d matching chunks", len(results))},
			},
			"results": results,
		}, nil

	case "get_stats":
		stats, err := s.queryService.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": fmt.Sprintf("%d documents, %d chunks, %d sessions",
					stats.DocumentCount, stats.ChunkCount, stats.SessionCount)},
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Name)
	}
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
