package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/xsigoking/chatgpt-free-api/internal/metrics"
)

type relayEventKind int

const (
	relayFirst relayEventKind = iota
	relayTextDelta
	relayDone
)

// relayEvent is the handoff unit between the upstream relay task and the
// response assembler. Exactly one first event precedes everything else; it
// decides whether the call commits an error or a success and is never
// forwarded to the client.
type relayEvent struct {
	kind relayEventKind
	text string
	err  error
}

// relayConversation opens the SSE connection to the conversation endpoint
// and publishes relay events to the capacity-one channel. It closes the
// channel when the upstream stream ends for any reason. Every send selects
// on ctx, so a client that disconnected mid-stream stops upstream reading
// promptly instead of draining it to completion.
func (s *Server) relayConversation(ctx context.Context, reqs *sessionRequirements, proofToken string, body []byte, events chan<- relayEvent) {
	defer close(events)

	sendFirstFailure := func(failure *TransportError) {
		s.metrics.ObserveRelayFailure(metrics.StagePreCommit)
		sendRelayEvent(ctx, events, relayEvent{kind: relayFirst, err: failure})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.conversationURL, bytes.NewReader(body))
	if err != nil {
		sendFirstFailure(&TransportError{Kind: TransportErrorGeneric, Message: err.Error()})
		return
	}
	setCommonHeaders(req)
	req.Header.Set("accept", "text/event-stream")
	req.Header.Set("oai-device-id", reqs.deviceID)
	req.Header.Set("openai-sentinel-chat-requirements-token", reqs.token)
	req.Header.Set("openai-sentinel-proof-token", proofToken)

	resp, err := s.client.Do(req)
	if err != nil {
		sendFirstFailure(&TransportError{Kind: TransportErrorGeneric, Message: err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview := readBodyPreview(resp.Body)
		sendFirstFailure(&TransportError{
			Kind:    TransportErrorStatus,
			Message: fmt.Sprintf("Invalid response code %d, %s", resp.StatusCode, preview),
		})
		return
	}

	mediaType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = mt
	}
	if mediaType != "text/event-stream" {
		preview := readBodyPreview(resp.Body)
		sendFirstFailure(&TransportError{
			Kind:    TransportErrorContentType,
			Message: fmt.Sprintf("The chatgpt api should return data as 'text/event-stream', but it isn't. %s", preview),
		})
		return
	}

	// Connection open: this is the commit point for the call.
	if !sendRelayEvent(ctx, events, relayEvent{kind: relayFirst}) {
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	// Upstream resends the full text so far on every event. Track how many
	// characters (runes, content may be multi-byte) have been observed and
	// forward only the new suffix.
	prevRunes := 0

	var dataLines [][]byte
	flushEvent := func() (stop bool) {
		if len(dataLines) == 0 {
			return false
		}
		raw := bytes.Join(dataLines, []byte("\n"))
		dataLines = dataLines[:0]

		if bytes.Equal(bytes.TrimSpace(raw), []byte("[DONE]")) {
			sendRelayEvent(ctx, events, relayEvent{kind: relayDone})
			return true
		}

		var evt conversationEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return false
		}
		if evt.Message == nil || evt.Message.Author.Role != "assistant" || len(evt.Message.Content.Parts) == 0 {
			return false
		}

		snapshot := []rune(evt.Message.Content.Parts[0])
		delta := ""
		if prevRunes < len(snapshot) {
			delta = string(snapshot[prevRunes:])
		}
		// Drop spurious empty frames, but always forward the very first
		// observation so the role chunk reaches the client.
		if delta == "" && prevRunes > 0 {
			return false
		}
		if !sendRelayEvent(ctx, events, relayEvent{kind: relayTextDelta, text: delta}) {
			return true
		}
		prevRunes = len(snapshot)
		return false
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			if flushEvent() {
				return
			}
			continue
		}
		if bytes.HasPrefix(line, []byte(":")) {
			continue
		}
		if bytes.HasPrefix(line, []byte("data:")) {
			payload := bytes.TrimPrefix(line, []byte("data:"))
			// SSE allows an optional single space after the colon.
			if len(payload) > 0 && payload[0] == ' ' {
				payload = payload[1:]
			}
			cp := make([]byte, len(payload))
			copy(cp, payload)
			dataLines = append(dataLines, cp)
		}
	}
	if err := scanner.Err(); err != nil {
		// The response already committed; the outgoing sequence simply ends
		// without a terminal error.
		s.metrics.ObserveRelayFailure(metrics.StagePostCommit)
		s.logger.Debug().Err(err).Msg("Upstream stream failed after commit")
		return
	}
	// A clean EOF without [DONE] is a normal stream end, not an error.
	flushEvent()
}

func sendRelayEvent(ctx context.Context, events chan<- relayEvent, ev relayEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func readBodyPreview(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil {
		return fmt.Sprintf("<error reading body: %v>", err)
	}
	return string(b)
}
