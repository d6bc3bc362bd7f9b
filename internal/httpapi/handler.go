package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"medrag/internal/domain"
	"medrag/internal/port"
	"medrag/internal/usecase"
)

// Asker runs one validated, logged pipeline invocation.
type Asker interface {
	Ask(ctx context.Context, question string, k int) (*usecase.AskResult, error)
}

type Handler struct {
	asker     Asker
	retriever port.Retriever
	history   port.InteractionHistory
	defaultK  int
	ready     func() error
}

// NewHandler creates the API handlers. history may be nil, in which case
// /v1/history answers 404. ready reports whether requests can be served.
func NewHandler(asker Asker, retriever port.Retriever, history port.InteractionHistory, defaultK int, ready func() error) *Handler {
	if defaultK <= 0 {
		defaultK = usecase.DefaultTopK
	}
	if ready == nil {
		ready = func() error { return nil }
	}
	return &Handler{
		asker:     asker,
		retriever: retriever,
		history:   history,
		defaultK:  defaultK,
		ready:     ready,
	}
}

// Ask answers POST /v1/ask.
func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	res, err := h.asker.Ask(c.Request.Context(), req.Question, req.K)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, AskResponse{
		Answer:            res.Answer.Text,
		Quality:           res.Answer.Quality,
		Citations:         res.Answer.Citations,
		ElapsedMs:         res.Elapsed.Milliseconds(),
		UnverifiedSources: res.Answer.UnverifiedSources,
	})
}

// Retrieve answers POST /v1/retrieve with hits only, no generation.
func (h *Handler) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.fail(c, fmt.Errorf("%w: question is empty", domain.ErrValidation))
		return
	}
	k := req.K
	if k == 0 {
		k = h.defaultK
	}

	hits, err := h.retriever.RetrieveTopK(c.Request.Context(), req.Question, k)
	if err != nil {
		h.fail(c, err)
		return
	}
	if hits == nil {
		hits = []domain.RetrievalHit{}
	}
	c.JSON(http.StatusOK, RetrieveResponse{Hits: hits})
}

// History answers GET /v1/history?n=20.
func (h *Handler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "interaction history is not available for this backend"})
		return
	}
	n := 20
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			h.fail(c, fmt.Errorf("%w: n must be a non-negative integer", domain.ErrValidation))
			return
		}
		n = v
	}

	items, err := h.history.Recent(c.Request.Context(), n)
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []domain.Interaction{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Interactions: items})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Ready(c *gin.Context) {
	if err := h.ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) fail(c *gin.Context, err error) {
	requestID, _ := c.Get("request_id")
	id, _ := requestID.(string)
	c.JSON(StatusFor(err), ErrorResponse{
		Error:     domain.Kind(err),
		Message:   err.Error(),
		RequestID: id,
	})
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStartupIntegrity):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrEmbeddingProvider),
		errors.Is(err, domain.ErrInvalidEmbedding),
		errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
