package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var _ port.CorpusStore = (*Store)(nil)

// Store is an immutable, positionally addressed document list.
type Store struct {
	docs []domain.Document
}

func NewStore(docs []domain.Document) *Store {
	cp := make([]domain.Document, len(docs))
	copy(cp, docs)
	return &Store{docs: cp}
}

func (s *Store) Get(row int) (domain.Document, bool) {
	if row < 0 || row >= len(s.docs) {
		return domain.Document{}, false
	}
	return s.docs[row], true
}

func (s *Store) Len() int {
	return len(s.docs)
}

// Load reads a corpus file. ".jsonl" and ".ndjson" are read as JSON Lines,
// anything else as a single JSON array.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var docs []domain.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		docs, err = ReadJSONLines(f)
	default:
		docs, err = ReadJSON(f)
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return &Store{docs: docs}, nil
}

// ReadJSON decodes a JSON array of {title, text, url} records.
func ReadJSON(r io.Reader) ([]domain.Document, error) {
	var records []record
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode corpus array: %w", err)
	}
	docs := make([]domain.Document, len(records))
	for i, rec := range records {
		doc, err := rec.document(i)
		if err != nil {
			return nil, err
		}
		docs[i] = doc
	}
	return docs, nil
}

// ReadJSONLines decodes one record per non-blank line.
func ReadJSONLines(r io.Reader) ([]domain.Document, error) {
	var docs []domain.Document
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		doc, err := rec.document(len(docs))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// record uses pointers so a missing text field is told apart from an empty one.
type record struct {
	Title *string `json:"title"`
	Text  *string `json:"text"`
	URL   *string `json:"url"`
}

func (r record) document(row int) (domain.Document, error) {
	if r.Text == nil || strings.TrimSpace(*r.Text) == "" {
		return domain.Document{}, fmt.Errorf("record %d has no text", row)
	}
	doc := domain.Document{Text: *r.Text}
	if r.Title != nil {
		doc.Title = *r.Title
	}
	if r.URL != nil {
		doc.URL = *r.URL
	}
	return doc, nil
}
