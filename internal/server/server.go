package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/xsigoking/chatgpt-free-api/internal/metrics"
)

const (
	defaultConversationURL = "https://chat.openai.com/backend-anon/conversation"
	defaultRequirementsURL = "https://chat.openai.com/backend-anon/sentinel/chat-requirements"
)

// Server translates OpenAI-style chat completion calls into anonymous
// conversation requests against the upstream backend.
type Server struct {
	client          HTTPClient
	logger          zerolog.Logger
	metrics         *metrics.Metrics
	authorization   string
	proofSeed       int
	requirementsURL string
	conversationURL string
	router          chi.Router
}

// Options configures a Server. Zero-value endpoint fields fall back to the
// production backend; a nil Client falls back to a direct connection client.
type Options struct {
	Client HTTPClient

	Metrics *metrics.Metrics

	// Authorization, when non-empty, must match the Authorization header
	// of every request verbatim.
	Authorization string

	// ProofSeed is the process-wide random constant embedded in every
	// proof-of-work candidate. Generate it once at startup with
	// NewProofSeed.
	ProofSeed int

	RequirementsURL string
	ConversationURL string
}

// NewProofSeed picks the process-wide random constant for proof-of-work
// payloads. It imitates the value range the browser challenge script
// produces.
func NewProofSeed() int {
	return 2000 + rand.Intn(6000)
}

func New(logger zerolog.Logger, opts Options) *Server {
	s := &Server{
		client:          opts.Client,
		logger:          logger,
		metrics:         opts.Metrics,
		authorization:   opts.Authorization,
		proofSeed:       opts.ProofSeed,
		requirementsURL: opts.RequirementsURL,
		conversationURL: opts.ConversationURL,
	}
	if s.client == nil {
		s.client = NewHTTPClient(nil)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.proofSeed == 0 {
		s.proofSeed = NewProofSeed()
	}
	if s.requirementsURL == "" {
		s.requirementsURL = defaultRequirementsURL
	}
	if s.conversationURL == "" {
		s.conversationURL = defaultConversationURL
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(s.observeMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/v1/chat/completions", s.chatCompletionsHandler)
		r.Options("/v1/chat/completions", s.optionsHandler)
		r.Get("/v1/models", s.modelsHandler)
		r.Options("/v1/models", s.optionsHandler)
	})

	// Scrapers reach the metrics endpoint without the shared secret; it
	// never exposes request or response content.
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.NotFound(s.notFoundHandler)
	r.MethodNotAllowed(s.notFoundHandler)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// observeMiddleware logs every request and feeds the request counter.
func (s *Server) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.metrics.ObserveRequest(r.URL.Path, ww.Status())
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

// corsMiddleware sets the CORS headers on every response.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		next.ServeHTTP(w, r)
	})
}

// authMiddleware enforces the optional shared secret. The header value is
// compared verbatim; the secret is never forwarded upstream.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authorization != "" && r.Header.Get("Authorization") != s.authorization {
			s.logger.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Rejected request with missing or invalid authorization")
			s.writeError(w, http.StatusUnauthorized, "No authorization header or invalid authorization value.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "The requested endpoint was not found.")
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	response := modelsResponse{
		Object: "list",
		Data:   supportedModels(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode models response")
	}
}

// chatCompletionsHandler drives the whole pipeline: validate and translate
// the request, negotiate a session, solve the proof-of-work, then hand the
// relay events to the streaming or buffered assembler. Business-logic
// failures deliberately answer 200 with the error envelope; only
// authorization and routing failures use 4xx.
func (s *Server) chatCompletionsHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error reading request body")
		s.writeError(w, http.StatusOK, fmt.Sprintf("Invalid request body, %v", err))
		return
	}
	defer r.Body.Close()

	var req ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Error().Err(err).Msg("Error unmarshalling request body")
		s.writeError(w, http.StatusOK, fmt.Sprintf("Invalid request body, %v", err))
		return
	}

	convo, err := translateRequest(&req)
	if err != nil {
		s.logger.Error().Err(err).Msg("Rejected invalid chat completion request")
		s.writeError(w, http.StatusOK, err.Error())
		return
	}

	ctx := r.Context()

	reqs, err := s.negotiateSession(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Session negotiation failed")
		s.writeError(w, http.StatusOK, err.Error())
		return
	}

	proofToken, degraded := solveProofOfWork(s.proofSeed, reqs.seed, reqs.difficulty)
	s.metrics.ObserveProofOfWork(degraded)
	if degraded {
		s.logger.Warn().
			Str("difficulty", reqs.difficulty).
			Msg("Proof-of-work search exhausted, proceeding with degraded fallback token")
	}

	payload, err := json.Marshal(convo)
	if err != nil {
		s.writeError(w, http.StatusOK, fmt.Sprintf("Failed to encode upstream request, %v", err))
		return
	}

	s.logger.Debug().
		Str("device_id", reqs.deviceID).
		Bool("degraded_token", degraded).
		Int("message_count", len(req.Messages)).
		Bool("stream", req.Stream).
		Msg("Opening upstream conversation")

	events := make(chan relayEvent, 1)
	go s.relayConversation(ctx, reqs, proofToken, payload, events)

	first, ok := s.awaitFirstEvent(ctx, events)
	if !ok {
		// Client went away before anything committed.
		return
	}
	if first.err != nil {
		s.logger.Error().Err(first.err).Msg("Upstream conversation failed before commit")
		s.writeError(w, http.StatusOK, first.err.Error())
		return
	}

	completionID := newCompletionID()
	created := time.Now().Unix()

	if req.Stream {
		s.streamCompletion(ctx, w, events, completionID, created)
		return
	}
	s.bufferCompletion(ctx, w, events, completionID, created)
}

// awaitFirstEvent blocks for the single first relay event. The second return
// value is false when the client disconnected before anything was received.
func (s *Server) awaitFirstEvent(ctx context.Context, events <-chan relayEvent) (relayEvent, bool) {
	select {
	case ev, open := <-events:
		if !open {
			return relayEvent{
				kind: relayFirst,
				err:  &TransportError{Kind: TransportErrorGeneric, Message: "upstream stream ended before any event"},
			}, true
		}
		return ev, true
	case <-ctx.Done():
		return relayEvent{}, false
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	envelope := errorEnvelope{
		Status: false,
		Error: errorDetail{
			Message: message,
			Type:    "invalid_request_error",
		},
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode error response")
	}
}
