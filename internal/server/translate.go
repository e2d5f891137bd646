package server

import (
	"strings"

	"github.com/google/uuid"
)

// upstreamModel is the only model slug the anonymous backend accepts.
const upstreamModel = "text-davinci-002-render-sha"

// translateRequest converts an inbound chat completion request into the
// upstream conversation schema.
//
// Merge policy: prior turns are collapsed into a single user message. When
// the request carries history (more than two messages), each user turn is
// wrapped in an [INST]...[/INST] marker and all non-system turns are joined
// with newlines. An optional system message is forwarded as its own upstream
// message ahead of the combined one. The anonymous backend keeps no
// conversation state, so per-message pass-through would lose turn boundaries
// entirely; the instruction markers at least preserve them inside one prompt.
func translateRequest(req *ChatCompletionRequest) (*conversationRequest, error) {
	if req.Messages == nil {
		return nil, &ValidationError{Message: "Invalid request messages"}
	}

	hasHistory := len(req.Messages) > 2

	var systemPrompt string
	haveSystem := false
	var turns []string

	for _, m := range req.Messages {
		if m.Role == "" || m.Content.Text == "" {
			return nil, &ValidationError{Message: "Invalid request messages"}
		}
		switch {
		case m.Role == "system":
			if haveSystem {
				return nil, &ValidationError{Message: "Invalid request messages"}
			}
			haveSystem = true
			systemPrompt = m.Content.Text
		case m.Role == "user" && hasHistory:
			turns = append(turns, "[INST]"+m.Content.Text+"[/INST]")
		default:
			turns = append(turns, m.Content.Text)
		}
	}

	var messages []upstreamMessage
	if haveSystem {
		messages = append(messages, newUpstreamMessage("system", systemPrompt))
	}
	messages = append(messages, newUpstreamMessage("user", strings.Join(turns, "\n")))

	return &conversationRequest{
		Action:                     "next",
		Messages:                   messages,
		ParentMessageID:            uuid.NewString(),
		Model:                      upstreamModel,
		TimezoneOffsetMin:          0,
		Suggestions:                []string{},
		HistoryAndTrainingDisabled: true,
		ConversationMode:           conversationMode{Kind: "primary_assistant"},
		WebsocketRequestID:         uuid.NewString(),
	}, nil
}

func newUpstreamMessage(role, text string) upstreamMessage {
	return upstreamMessage{
		ID:     uuid.NewString(),
		Author: upstreamAuthor{Role: role},
		Content: upstreamContent{
			ContentType: "text",
			Parts:       []string{text},
		},
		Metadata: map[string]interface{}{},
	}
}
