package server

import "encoding/json"

// ChatMessage is one entry of an inbound chat completion request.
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent accepts the two content shapes clients send: a plain string,
// or a structured array whose single element carries a text field. A plain
// string always wins; an array with more than one element decodes to empty
// text, which validation later rejects.
type MessageContent struct {
	Text string
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		return nil
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err == nil && len(parts) == 1 {
		c.Text = parts[0].Text
		return nil
	}
	// Any other shape is treated as empty content.
	c.Text = ""
	return nil
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Text)
}

// ChatCompletionRequest is the inbound request body. Messages stays nil when
// the field is absent so validation can tell "missing" from "empty".
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ===== outgoing chat completion wire shapes =====

type chunkDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type completionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *usage        `json:"usage,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type chatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   usage              `json:"usage"`
}

// errorEnvelope is the uniform error body returned for every failed call.
type errorEnvelope struct {
	Status bool        `json:"status"`
	Error  errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ===== upstream conversation wire shapes =====

type upstreamAuthor struct {
	Role string `json:"role"`
}

type upstreamContent struct {
	ContentType string   `json:"content_type"`
	Parts       []string `json:"parts"`
}

type upstreamMessage struct {
	ID       string                 `json:"id"`
	Author   upstreamAuthor         `json:"author"`
	Content  upstreamContent        `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

type conversationMode struct {
	Kind string `json:"kind"`
}

type conversationRequest struct {
	Action                     string            `json:"action"`
	Messages                   []upstreamMessage `json:"messages"`
	ParentMessageID            string            `json:"parent_message_id"`
	Model                      string            `json:"model"`
	TimezoneOffsetMin          int               `json:"timezone_offset_min"`
	Suggestions                []string          `json:"suggestions"`
	HistoryAndTrainingDisabled bool              `json:"history_and_training_disabled"`
	ConversationMode           conversationMode  `json:"conversation_mode"`
	ForceParagen               bool              `json:"force_paragen"`
	ForceParagenModelSlug      string            `json:"force_paragen_model_slug"`
	ForceNulligen              bool              `json:"force_nulligen"`
	ForceRateLimit             bool              `json:"force_rate_limit"`
	WebsocketRequestID         string            `json:"websocket_request_id"`
}

// conversationEvent is a single JSON payload of the upstream SSE stream. Only
// the assistant message snapshot is of interest; everything else is ignored.
type conversationEvent struct {
	Message *struct {
		Author  upstreamAuthor `json:"author"`
		Content struct {
			Parts []string `json:"parts"`
		} `json:"content"`
	} `json:"message"`
}

// requirementsResponse is the typed shape of the sentinel chat-requirements
// payload. Pointer fields let the negotiator distinguish missing sections
// from empty values.
type requirementsResponse struct {
	Token       string `json:"token"`
	ProofOfWork *struct {
		Seed       string `json:"seed"`
		Difficulty string `json:"difficulty"`
	} `json:"proofofwork"`
}
