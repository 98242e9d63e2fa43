package mcp

import (
	"context"
	"encoding/json"

	"github.com/johnrirwin/citywatch/internal/logging"
	"github.com/johnrirwin/citywatch/internal/models"
	"github.com/johnrirwin/citywatch/internal/pipeline"
)

type Handler struct {
	pipe   *pipeline.Pipeline
	logger *logging.Logger
}

func NewHandler(pipe *pipeline.Pipeline, logger *logging.Logger) *Handler {
	return &Handler{
		pipe:   pipe,
		logger: logger,
	}
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type SearchParams struct {
	City       string `json:"city"`
	MaxResults int    `json:"max_results"`
}

type AnalyzeParams struct {
	Result models.FetchResult `json:"result"`
}

type FilterParams struct {
	Result   models.FetchResult `json:"result"`
	Keywords []string           `json:"keywords"`
}

type SummaryParams struct {
	City string `json:"city"`
}

func (h *Handler) GetTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "search_protests",
			Description: "Search Reddit, news coverage, and the web for recent protest activity in a city. Returns normalized events with sentiment scores, sorted newest first.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"city": {
						"type": "string",
						"description": "City to monitor (e.g., Portland)"
					},
					"max_results": {
						"type": "integer",
						"description": "Maximum number of events to return (default: 100)"
					}
				},
				"required": ["city"]
			}`),
		},
		{
			Name:        "analyze_protest_sentiment",
			Description: "Aggregate a search result into sentiment breakdown, engagement metrics, top themes, top sources, and key insights.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"result": {
						"type": "object",
						"description": "A search_protests result to analyze"
					}
				},
				"required": ["result"]
			}`),
		},
		{
			Name:        "filter_by_keywords",
			Description: "Narrow a search result to events whose text mentions any of the given keywords (case-insensitive).",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"result": {
						"type": "object",
						"description": "A search_protests result to filter"
					},
					"keywords": {
						"type": "array",
						"items": {"type": "string"},
						"description": "Keywords to match against event text"
					}
				},
				"required": ["result", "keywords"]
			}`),
		},
		{
			Name:        "get_protest_summary",
			Description: "Run the full monitoring chain for a city and return a formatted text report: overview, sentiment, engagement, themes, sources, and insights.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"city": {
						"type": "string",
						"description": "City to summarize (e.g., Portland)"
					}
				},
				"required": ["city"]
			}`),
		},
	}
}

func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments json.RawMessage) (interface{}, error) {
	switch name {
	case "search_protests":
		return h.handleSearch(ctx, arguments)
	case "analyze_protest_sentiment":
		return h.handleAnalyze(arguments)
	case "filter_by_keywords":
		return h.handleFilter(arguments)
	case "get_protest_summary":
		return h.handleSummary(ctx, arguments)
	default:
		return nil, &ToolError{Message: "Unknown tool: " + name}
	}
}

func (h *Handler) handleSearch(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params SearchParams
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &params); err != nil {
			return nil, &ToolError{Message: "Invalid arguments: " + err.Error()}
		}
	}
	if params.City == "" {
		return nil, &ToolError{Message: "city is required"}
	}

	return h.pipe.Search(ctx, params.City, params.MaxResults), nil
}

func (h *Handler) handleAnalyze(arguments json.RawMessage) (interface{}, error) {
	var params AnalyzeParams
	if err := json.Unmarshal(arguments, &params); err != nil {
		return nil, &ToolError{Message: "Invalid arguments: " + err.Error()}
	}

	analysis, err := h.pipe.Analyze(params.Result)
	if err != nil {
		return nil, &ToolError{Message: "Failed to analyze: " + err.Error()}
	}
	return analysis, nil
}

func (h *Handler) handleFilter(arguments json.RawMessage) (interface{}, error) {
	var params FilterParams
	if err := json.Unmarshal(arguments, &params); err != nil {
		return nil, &ToolError{Message: "Invalid arguments: " + err.Error()}
	}

	filtered, err := h.pipe.FilterByKeywords(params.Result, params.Keywords)
	if err != nil {
		return nil, &ToolError{Message: "Failed to filter: " + err.Error()}
	}
	return filtered, nil
}

func (h *Handler) handleSummary(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var params SummaryParams
	if err := json.Unmarshal(arguments, &params); err != nil {
		return nil, &ToolError{Message: "Invalid arguments: " + err.Error()}
	}
	if params.City == "" {
		return nil, &ToolError{Message: "city is required"}
	}

	summary, err := h.pipe.Summarize(ctx, params.City)
	if err != nil {
		return nil, &ToolError{Message: "Failed to summarize: " + err.Error()}
	}
	return summary, nil
}

type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}
