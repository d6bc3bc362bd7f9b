package httpapi

import (
	"medrag/internal/domain"
)

type AskRequest struct {
	Question string `json:"question" binding:"required"`
	K        int    `json:"k"`
}

type AskResponse struct {
	Answer            string            `json:"answer"`
	Quality           float64           `json:"quality"`
	Citations         []domain.Citation `json:"citations"`
	ElapsedMs         int64             `json:"elapsed_ms"`
	UnverifiedSources []int             `json:"unverified_sources,omitempty"`
}

type RetrieveRequest struct {
	Question string `json:"question" binding:"required"`
	K        int    `json:"k"`
}

type RetrieveResponse struct {
	Hits []domain.RetrievalHit `json:"hits"`
}

type HistoryResponse struct {
	Interactions []domain.Interaction `json:"interactions"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}
