package types

import (
	"encoding/json"
	"time"
)

// ToolSchema defines a function tool advertised to the realtime model.
// Type is always "function" on the wire.
type ToolSchema struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	CallID   string          `json:"call_id"`
	Name     string          `json:"name"`
	Output   json.RawMessage `json:"output"`
	Error    string          `json:"error,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// IsError returns true if the tool execution failed.
func (tr ToolResult) IsError() bool {
	return tr.Error != ""
}
