package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
)

// servedModel is the model name reported on every outgoing completion.
const servedModel = "gpt-3.5-turbo"

func newCompletionID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 16)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return "chatcmpl-" + string(b)
}

// sseFlushWriter wraps a ResponseWriter to flush after each write.
type sseFlushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw sseFlushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil {
		fw.f.Flush()
	}
	return n, err
}

// streamCompletion renders the relay events remaining after the consumed
// first event as an SSE chunk sequence. By the time this runs the response
// has committed; failures can only end the stream, never turn into an error
// body.
func (s *Server) streamCompletion(ctx context.Context, w http.ResponseWriter, events <-chan relayEvent, id string, created int64) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var out io.Writer = w
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
		out = sseFlushWriter{w: w, f: flusher}
	} else {
		s.logger.Warn().Msg("ResponseWriter does not support flushing - streaming may be buffered")
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Upstream ended without [DONE]; nothing more to emit.
				return
			}
			switch ev.kind {
			case relayTextDelta:
				if err := writeContentChunk(out, id, created, ev.text); err != nil {
					s.logger.Debug().Err(err).Msg("Client write failed mid-stream")
					return
				}
			case relayDone:
				if err := writeFinalChunk(out, id, created); err != nil {
					s.logger.Debug().Err(err).Msg("Client write failed on terminal chunk")
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// bufferCompletion drains the relay events and renders one completion
// document with the concatenated content.
func (s *Server) bufferCompletion(ctx context.Context, w http.ResponseWriter, events <-chan relayEvent, id string, created int64) {
	var content strings.Builder
loop:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			switch ev.kind {
			case relayTextDelta:
				content.WriteString(ev.text)
			case relayDone:
				break loop
			}
		case <-ctx.Done():
			return
		}
	}

	doc := chatCompletion{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   servedModel,
		Choices: []completionChoice{
			{
				Index: 0,
				Message: completionMessage{
					Role:    "assistant",
					Content: content.String(),
				},
				FinishReason: "stop",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode completion response")
	}
}

func writeContentChunk(w io.Writer, id string, created int64, text string) error {
	// An empty delta only happens on the first content-bearing frame; it
	// carries the assistant role so clients initialize the message.
	delta := chunkDelta{Content: &text}
	if text == "" {
		delta.Role = "assistant"
	}
	chunk := completionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   servedModel,
		Choices: []chunkChoice{{Index: 0, Delta: delta}},
	}
	b, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal content chunk: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}

func writeFinalChunk(w io.Writer, id string, created int64) error {
	stop := "stop"
	chunk := completionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   servedModel,
		Choices: []chunkChoice{{Index: 0, FinishReason: &stop}},
		Usage:   &usage{},
	}
	b, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal terminal chunk: %w", err)
	}
	// The terminal chunk and the [DONE] sentinel go out in one write so no
	// client ever observes one without the other.
	_, err = fmt.Fprintf(w, "data: %s\n\ndata: [DONE]\n\n", b)
	return err
}
