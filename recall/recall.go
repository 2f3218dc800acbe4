package recall

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/vinayprograms/conductor/results"
)

// Common errors.
var (
	ErrNotFound    = errors.New("archived result not found")
	ErrClosed      = errors.New("archive closed")
	ErrNotTerminal = errors.New("result not terminal")
)

// Document is the indexed form of a terminal task result.
type Document struct {
	TaskID      string    `json:"task_id"`
	AgentID     string    `json:"agent_id"`
	AgentType   string    `json:"agent_type"`
	Status      string    `json:"status"`
	Output      string    `json:"output"`
	Error       string    `json:"error"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completed_at"`
}

// Hit is one search match.
type Hit struct {
	TaskID    string
	AgentType string
	Status    string
	Output    string
	Score     float64
}

// SearchOpts narrows a search.
type SearchOpts struct {
	// AgentType restricts matches to one capability class.
	AgentType string

	// Status restricts matches to "success" or "failed".
	Status string

	// Limit caps the number of hits. Default: 10.
	Limit int
}

// Config configures the archive.
type Config struct {
	// Path is the index directory. Empty keeps the index in memory,
	// which is what tests and short-lived runs want.
	Path string
}

// Archive is a bleve-backed full-text index over terminal results.
type Archive struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// New opens or creates an archive.
func New(cfg Config) (*Archive, error) {
	var index bleve.Index
	var err error

	if cfg.Path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else if _, statErr := os.Stat(cfg.Path); os.IsNotExist(statErr) {
		index, err = bleve.New(cfg.Path, buildIndexMapping())
	} else {
		index, err = bleve.Open(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open archive index: %w", err)
	}

	return &Archive{index: index}, nil
}

// buildIndexMapping maps output and error as analyzed text and the
// identifying fields as exact-match keywords.
func buildIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name

	keyword := bleve.NewKeywordFieldMapping()
	date := bleve.NewDateTimeFieldMapping()

	doc.AddFieldMappingsAt("output", text)
	doc.AddFieldMappingsAt("error", text)
	doc.AddFieldMappingsAt("task_id", keyword)
	doc.AddFieldMappingsAt("agent_id", keyword)
	doc.AddFieldMappingsAt("agent_type", keyword)
	doc.AddFieldMappingsAt("status", keyword)
	doc.AddFieldMappingsAt("completed_at", date)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// IndexResult archives a terminal result, keyed by task ID. Indexing
// the same task again replaces the previous document.
func (a *Archive) IndexResult(r *results.Result) error {
	if r == nil || !r.Status.IsTerminal() {
		return ErrNotTerminal
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}

	doc := Document{
		TaskID:      r.TaskID,
		AgentID:     r.AgentID,
		AgentType:   r.AgentType.String(),
		Status:      string(r.Status),
		Output:      r.Output,
		Error:       r.Error,
		Attempts:    r.Attempts,
		CompletedAt: r.UpdatedAt,
	}
	return a.index.Index(r.TaskID, doc)
}

// Get retrieves an archived document by task ID.
func (a *Archive) Get(taskID string) (*Document, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{taskID}))
	req.Fields = []string{"*"}
	req.Size = 1

	res, err := a.index.Search(req)
	if err != nil {
		return nil, err
	}
	if res.Total == 0 {
		return nil, ErrNotFound
	}

	return hitToDocument(res.Hits[0].ID, res.Hits[0].Fields), nil
}

// Search finds archived results whose output or error matches the query.
func (a *Archive) Search(query string, opts SearchOpts) ([]Hit, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}

	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	match := bleve.NewMatchQuery(query)

	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(match)
	if opts.AgentType != "" {
		tq := bleve.NewTermQuery(opts.AgentType)
		tq.SetField("agent_type")
		boolQuery.AddMust(tq)
	}
	if opts.Status != "" {
		tq := bleve.NewTermQuery(opts.Status)
		tq.SetField("status")
		boolQuery.AddMust(tq)
	}

	req := bleve.NewSearchRequest(boolQuery)
	req.Size = opts.Limit
	req.Fields = []string{"output", "agent_type", "status"}

	res, err := a.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{TaskID: h.ID, Score: h.Score}
		if v, ok := h.Fields["output"].(string); ok {
			hit.Output = v
		}
		if v, ok := h.Fields["agent_type"].(string); ok {
			hit.AgentType = v
		}
		if v, ok := h.Fields["status"].(string); ok {
			hit.Status = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete removes an archived result.
func (a *Archive) Delete(taskID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return a.index.Delete(taskID)
}

// Count returns the number of archived results.
func (a *Archive) Count() (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return 0, ErrClosed
	}
	return a.index.DocCount()
}

// Close closes the underlying index.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.index.Close()
}

// hitToDocument rebuilds a Document from stored fields.
func hitToDocument(id string, fields map[string]interface{}) *Document {
	doc := &Document{TaskID: id}
	if v, ok := fields["agent_id"].(string); ok {
		doc.AgentID = v
	}
	if v, ok := fields["agent_type"].(string); ok {
		doc.AgentType = v
	}
	if v, ok := fields["status"].(string); ok {
		doc.Status = v
	}
	if v, ok := fields["output"].(string); ok {
		doc.Output = v
	}
	if v, ok := fields["error"].(string); ok {
		doc.Error = v
	}
	if v, ok := fields["attempts"].(float64); ok {
		doc.Attempts = int(v)
	}
	if v, ok := fields["completed_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			doc.CompletedAt = t
		}
	}
	return doc
}
