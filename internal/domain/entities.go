package domain

import (
	"strconv"
	"time"
)

// Document is one corpus record. Its identity is its row position in the corpus,
// which must match the row of its embedding in the vector index.
type Document struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// Neighbor is a raw vector index result.
type Neighbor struct {
	Row   int
	Score float32 // inner product of unit vectors, higher is better
}

type RetrievalHit struct {
	Score float64 `json:"score"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
	URL   string  `json:"url"`
}

type Citation struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Answer is the result of one pipeline run.
type Answer struct {
	Text      string
	Quality   float64
	Citations []Citation
	Hits      []RetrievalHit

	// UnverifiedSources lists [Source N] numbers cited by the model that do not
	// refer to a retrieved passage. Advisory only.
	UnverifiedSources []int
}

// Interaction is one append-only log record.
type Interaction struct {
	Timestamp time.Time  `json:"timestamp"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Quality   float64    `json:"quality"`
	Citations []Citation `json:"citations"`
}

// TimestampLayout is the layout used when interactions are written as text.
const TimestampLayout = "2006-01-02 15:04:05"

// Round3 rounds to three decimals. Halfway cases are decided on the exact
// binary value, so 0.1235 (stored just below) rounds to 0.123.
func Round3(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// CitationFromHit projects a hit to its display-safe form.
func CitationFromHit(h RetrievalHit) Citation {
	return Citation{
		Title: h.Title,
		URL:   h.URL,
		Score: Round3(h.Score),
	}
}
