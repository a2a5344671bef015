package realtime

import (
	"encoding/json"

	"github.com/BaSui01/voiceweb/types"
)

// Client event types.
const (
	EventSessionUpdate          = "session.update"
	EventConversationItemCreate = "conversation.item.create"
	EventResponseCreate         = "response.create"
)

// Server event types the session reacts to.
const (
	EventSessionCreated            = "session.created"
	EventSessionUpdated            = "session.updated"
	EventFunctionCallArgumentsDone = "response.function_call_arguments.done"
	EventResponseDone              = "response.done"
	EventError                     = "error"
)

// Item and content part types.
const (
	ItemTypeMessage            = "message"
	ItemTypeFunctionCallOutput = "function_call_output"
	ContentInputText           = "input_text"
	ContentInputImage          = "input_image"
	RoleUser                   = "user"
)

// Event is a client-to-server message.
type Event struct {
	Type    string         `json:"type"`
	EventID string         `json:"event_id,omitempty"`
	Item    *Item          `json:"item,omitempty"`
	Session *SessionConfig `json:"session,omitempty"`
}

// Item is a conversation item.
type Item struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// ContentPart is one piece of message content.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// SessionConfig is the payload of session.update.
type SessionConfig struct {
	Instructions string             `json:"instructions,omitempty"`
	Modalities   []string           `json:"modalities,omitempty"`
	Voice        string             `json:"voice,omitempty"`
	Tools        []types.ToolSchema `json:"tools,omitempty"`
}

// ServerEvent is a server-to-client message. Only the fields this package
// reads are decoded; Raw keeps the full payload.
type ServerEvent struct {
	Type       string          `json:"type"`
	EventID    string          `json:"event_id,omitempty"`
	ResponseID string          `json:"response_id,omitempty"`
	ItemID     string          `json:"item_id,omitempty"`
	CallID     string          `json:"call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Arguments  string          `json:"arguments,omitempty"`
	Error      *ServerError    `json:"error,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// ServerError is the body of an "error" server event.
type ServerError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// NewImageMessage builds a user message carrying context text and an image.
func NewImageMessage(text, imageURL string) Event {
	return Event{
		Type: EventConversationItemCreate,
		Item: &Item{
			Type: ItemTypeMessage,
			Role: RoleUser,
			Content: []ContentPart{
				{Type: ContentInputText, Text: text},
				{Type: ContentInputImage, ImageURL: imageURL},
			},
		},
	}
}

// NewResponseCreate asks the model to respond.
func NewResponseCreate() Event {
	return Event{Type: EventResponseCreate}
}

// NewFunctionCallOutput reports a tool result for callID.
func NewFunctionCallOutput(callID, output string) Event {
	return Event{
		Type: EventConversationItemCreate,
		Item: &Item{
			Type:   ItemTypeFunctionCallOutput,
			CallID: callID,
			Output: output,
		},
	}
}

// NewSessionUpdate configures instructions and tools.
func NewSessionUpdate(cfg SessionConfig) Event {
	return Event{Type: EventSessionUpdate, Session: &cfg}
}

// DecodeServerEvent parses one inbound message.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ServerEvent{}, err
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return ev, nil
}
