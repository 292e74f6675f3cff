// Package httpapi exposes the chat, memory and lookup endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cartmind/cartmind-go/config"
	"github.com/cartmind/cartmind-go/conversation"
	"github.com/cartmind/cartmind-go/lookup"
	"github.com/cartmind/cartmind-go/memory"
	"github.com/cartmind/cartmind-go/observability"
	"github.com/cartmind/cartmind-go/workflow"
)

type Server struct {
	cfg      config.Config
	engine   *workflow.Engine
	mem      *memory.Service
	convLog  conversation.Log
	orders   lookup.OrderLookup
	products lookup.ProductLookup
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, engine *workflow.Engine, mem *memory.Service, convLog conversation.Log, orders lookup.OrderLookup, products lookup.ProductLookup, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		mem:      mem,
		convLog:  convLog,
		orders:   orders,
		products: products,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChat)
	r.Get("/api/chat/ws", s.handleChatWS)

	r.Post("/api/memory/search/{userID}", s.handleMemorySearch)
	r.Get("/api/memory/stats/{userID}", s.handleMemoryStats)
	r.Post("/api/memory/cleanup", s.handleMemoryCleanup)

	r.Get("/api/conversations/{sessionID}/messages", s.handleConversationMessages)
	r.Get("/api/orders/{orderID}", s.handleOrder)
	r.Get("/api/products/{productID}", s.handleProduct)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type chatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID     string                `json:"session_id"`
	UserMessage   string                `json:"user_message"`
	AIResponse    string                `json:"ai_response"`
	Intent        string                `json:"intent"`
	LiveContext   *workflow.LiveContext `json:"live_context,omitempty"`
	FailureNote   string                `json:"failure_note,omitempty"`
	UserMessageID string                `json:"user_message_id"`
	AIMessageID   string                `json:"ai_message_id"`
}

// handleChat runs one conversation turn and persists both sides of the
// exchange in the durable conversation log.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id and message are required")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := s.runTurn(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) runTurn(ctx context.Context, req chatRequest) (*chatResponse, error) {
	userMsg, err := s.convLog.Append(ctx, conversation.Message{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Role:      "user",
		Content:   req.Message,
	})
	if err != nil {
		return nil, err
	}

	state := s.engine.Run(ctx, req.UserID, req.SessionID, req.Message)

	aiMeta := map[string]string{"intent": string(state.Intent)}
	if state.FailureNote != "" {
		aiMeta["failure_note"] = state.FailureNote
	}
	aiMsg, err := s.convLog.Append(ctx, conversation.Message{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Role:      "ai",
		Content:   state.Response,
		Metadata:  aiMeta,
	})
	if err != nil {
		return nil, err
	}

	return &chatResponse{
		SessionID:     req.SessionID,
		UserMessage:   req.Message,
		AIResponse:    state.Response,
		Intent:        string(state.Intent),
		LiveContext:   state.Live,
		FailureNote:   state.FailureNote,
		UserMessageID: userMsg.ID,
		AIMessageID:   aiMsg.ID,
	}, nil
}

type memorySearchRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	Limit     int    `json:"limit"`
}

type memoryHit struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Role      string            `json:"role"`
	Distance  float64           `json:"distance"`
	CreatedAt string            `json:"created_at"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// handleMemorySearch returns ranked memory hits for the user. Store errors
// degrade to an empty result set; memory is never a fatal dependency of
// the request path.
func (s *Server) handleMemorySearch(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req memorySearchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	scope := memory.Scope{UserID: userID, SessionID: req.SessionID}
	hits, err := s.mem.Search(r.Context(), scope, req.Query, req.Limit)
	if err != nil {
		log.Printf("[HTTP] Memory search failed for user=%s: %v", userID, err)
		hits = nil
	}

	results := make([]memoryHit, 0, len(hits))
	for _, hit := range hits {
		results = append(results, memoryHit{
			ID:        hit.Entry.ID,
			Text:      hit.Entry.Text,
			Role:      string(hit.Entry.Role),
			Distance:  hit.Distance,
			CreatedAt: hit.Entry.CreatedAt.Format(time.RFC3339Nano),
			Extra:     hit.Entry.Extra,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	stats, err := s.mem.Stats(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] Memory stats failed for user=%s: %v", userID, err)
		stats = memory.Stats{}
	}
	respondJSON(w, http.StatusOK, stats)
}

type cleanupRequest struct {
	Days int `json:"days"`
}

func (s *Server) handleMemoryCleanup(w http.ResponseWriter, r *http.Request) {
	req := cleanupRequest{Days: -1}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	deleted, err := s.mem.Expire(r.Context(), req.Days)
	if err != nil {
		log.Printf("[HTTP] Memory cleanup failed: %v", err)
		deleted = 0
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":       "Cleaned up " + strconv.Itoa(deleted) + " expired memory entries",
		"deleted_count": deleted,
	})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	messages, err := s.convLog.RecentMessages(r.Context(), sessionID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "log_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "order id must be numeric")
		return
	}
	order, err := s.orders.ByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, lookup.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "product id must be numeric")
		return
	}
	products, err := s.products.ByIDs(r.Context(), []int64{productID})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "lookup_error", err.Error())
		return
	}
	if len(products) == 0 {
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
		return
	}
	respondJSON(w, http.StatusOK, products[0])
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
