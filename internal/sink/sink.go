package sink

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/nmoretto/jobharvest/internal/models"
)

// Sink receives each saved record. Push may be called from multiple workers
// concurrently; implementations serialize internally.
type Sink interface {
	Push(record models.JobRecord) error
	Close() error
}

// Memory collects records in order of arrival, for rendering after the run.
type Memory struct {
	mu      sync.Mutex
	records []models.JobRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Push(record models.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// Records returns a copy of everything pushed so far.
func (m *Memory) Records() []models.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.JobRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *Memory) Close() error {
	return nil
}

// JSONL streams records to a file as JSON Lines, one object per line, so a
// long run produces output even if it is interrupted.
type JSONL struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

func NewJSONL(path string) (*JSONL, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &JSONL{file: file, enc: json.NewEncoder(file)}, nil
}

func (j *JSONL) Push(record models.JobRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(record)
}

func (j *JSONL) Close() error {
	return j.file.Close()
}

// Multi fans every record out to all sinks, stopping at the first error.
type Multi []Sink

func (m Multi) Push(record models.JobRecord) error {
	for _, s := range m {
		if err := s.Push(record); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
