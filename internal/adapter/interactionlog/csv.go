// Package interactionlog holds the file and Redis interaction sinks.
package interactionlog

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var (
	_ port.InteractionLog     = (*CSVLog)(nil)
	_ port.InteractionHistory = (*CSVLog)(nil)
)

// Header is the first row of every log file.
var Header = []string{"timestamp", "question", "answer", "quality", "citations"}

// CSVLog appends interactions as CSV rows. The file and its parent
// directory are created on first write. When maxBytes > 0 a file that has
// reached it is renamed with a timestamp suffix and a fresh one is started.
type CSVLog struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	now      func() time.Time
}

func NewCSVLog(path string, maxBytes int64) *CSVLog {
	return &CSVLog{path: path, maxBytes: maxBytes, now: time.Now}
}

func (l *CSVLog) Append(ctx context.Context, in domain.Interaction) error {
	row, err := encodeRow(in)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	if err := l.rotateIfFull(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open interaction log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write interaction log: %w", err)
	}
	return f.Close()
}

func (l *CSVLog) rotateIfFull() error {
	if l.maxBytes <= 0 {
		return nil
	}
	info, err := os.Stat(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < l.maxBytes {
		return nil
	}

	ext := filepath.Ext(l.path)
	base := strings.TrimSuffix(l.path, ext)
	rotated := fmt.Sprintf("%s-%s%s", base, l.now().Format("20060102-150405.000"), ext)
	if err := os.Rename(l.path, rotated); err != nil {
		return fmt.Errorf("rotate interaction log: %w", err)
	}
	return nil
}

// Recent reads the current file only, not rotated ones.
func (l *CSVLog) Recent(ctx context.Context, n int) ([]domain.Interaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (l *CSVLog) Close() error {
	return nil
}

// ReadCSV parses a log file written by CSVLog, header included.
func ReadCSV(r io.Reader) ([]domain.Interaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse interaction log: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if strings.Join(rows[0], ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected interaction log header %v", rows[0])
	}

	out := make([]domain.Interaction, 0, len(rows)-1)
	for i, row := range rows[1:] {
		in, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func encodeRow(in domain.Interaction) ([]string, error) {
	citations := in.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	cj, err := json.Marshal(citations)
	if err != nil {
		return nil, fmt.Errorf("encode citations: %w", err)
	}
	return []string{
		in.Timestamp.Format(domain.TimestampLayout),
		in.Question,
		in.Answer,
		strconv.FormatFloat(in.Quality, 'f', -1, 64),
		string(cj),
	}, nil
}

func decodeRow(row []string) (domain.Interaction, error) {
	ts, err := time.ParseInLocation(domain.TimestampLayout, row[0], time.Local)
	if err != nil {
		return domain.Interaction{}, err
	}
	quality, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return domain.Interaction{}, err
	}
	var citations []domain.Citation
	if err := json.Unmarshal([]byte(row[4]), &citations); err != nil {
		return domain.Interaction{}, fmt.Errorf("decode citations: %w", err)
	}
	return domain.Interaction{
		Timestamp: ts,
		Question:  row[1],
		Answer:    row[2],
		Quality:   quality,
		Citations: citations,
	}, nil
}
