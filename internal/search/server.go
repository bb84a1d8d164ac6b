// Package search implements the in-memory TF-IDF search engine: an indexed
// document store with forward and inverted indices, a validating query
// parser, relevance scoring with inclusion and exclusion terms, and
// deterministic top-K ranking with sequential and parallel execution paths.
package search

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/avelichko/searchserver/internal/search/tokenizer"
	apperrors "github.com/avelichko/searchserver/pkg/errors"
)

const (
	// DefaultMaxResults bounds the number of documents a query returns.
	DefaultMaxResults = 5
	// DefaultShardCount sizes the parallel path's relevance accumulator.
	DefaultShardCount = 50
)

type documentParams struct {
	rating int
	status DocumentStatus
	// text keeps the original document so indexed terms, which borrow its
	// backing array, stay valid for the document's lifetime.
	text string
}

// Server is the indexed document store and query engine. Writes
// (AddDocument, RemoveDocument, RemoveDuplicates) take the write lock and
// must not race each other; reads may run concurrently, including the
// internally parallel query paths.
type Server struct {
	mu sync.RWMutex

	// wordDocFreqs is the inverted index: term -> document id -> TF.
	wordDocFreqs map[string]map[int]float64
	// docWordFreqs is the forward index, the transpose of wordDocFreqs.
	docWordFreqs map[int]map[string]float64

	stopWords map[string]struct{}
	documents map[int]documentParams
	docIDs    []int // ascending

	maxResults int
	shardCount int
	logger     *slog.Logger
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithMaxResults overrides the result truncation limit.
func WithMaxResults(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithShardCount overrides the parallel accumulator's shard count.
func WithShardCount(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// New creates a Server with the given stop words. Every stop word must be
// free of control bytes; empty strings are ignored.
func New(stopWords []string, opts ...Option) (*Server, error) {
	s := &Server{
		wordDocFreqs: make(map[string]map[int]float64),
		docWordFreqs: make(map[int]map[string]float64),
		stopWords:    make(map[string]struct{}, len(stopWords)),
		documents:    make(map[int]documentParams),
		maxResults:   DefaultMaxResults,
		shardCount:   DefaultShardCount,
		logger:       slog.Default().With("component", "search-server"),
	}
	for _, word := range stopWords {
		if word == "" {
			continue
		}
		if !isValidWord(word) {
			return nil, fmt.Errorf("stop word %q: %w", word, apperrors.ErrInvalidCharacters)
		}
		s.stopWords[word] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromText creates a Server from a space-separated stop-word string.
func NewFromText(stopWords string, opts ...Option) (*Server, error) {
	return New(tokenizer.SplitIntoWords(stopWords), opts...)
}

// AddDocument tokenizes text, strips stop words, and inserts the document
// into both indices. The id must be non-negative and unused, the text free
// of control bytes, and ratings non-empty.
func (s *Server) AddDocument(id int, text string, status DocumentStatus, ratings []int) error {
	if id < 0 {
		return fmt.Errorf("document id %d is negative: %w", id, apperrors.ErrInvalidDocument)
	}
	if !isValidWord(text) {
		return fmt.Errorf("document %d text contains control characters: %w", id, apperrors.ErrInvalidDocument)
	}
	if len(ratings) == 0 {
		return fmt.Errorf("document %d must carry at least one rating: %w", id, apperrors.ErrInvalidDocument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[id]; exists {
		return fmt.Errorf("document id %d already present: %w", id, apperrors.ErrInvalidDocument)
	}

	words := s.splitIntoWordsNoStop(text)
	inc := 1.0 / float64(len(words))
	for _, word := range words {
		postings, ok := s.wordDocFreqs[word]
		if !ok {
			postings = make(map[int]float64)
			s.wordDocFreqs[word] = postings
		}
		postings[id] += inc

		freqs, ok := s.docWordFreqs[id]
		if !ok {
			freqs = make(map[string]float64)
			s.docWordFreqs[id] = freqs
		}
		freqs[word] += inc
	}

	s.documents[id] = documentParams{
		rating: computeAverageRating(ratings),
		status: status,
		text:   text,
	}
	pos := sort.SearchInts(s.docIDs, id)
	s.docIDs = append(s.docIDs, 0)
	copy(s.docIDs[pos+1:], s.docIDs[pos:])
	s.docIDs[pos] = id

	s.logger.Debug("document added", "doc_id", id, "terms", len(s.docWordFreqs[id]))
	return nil
}

// RemoveDocument removes id from the store. Removing an absent id is a
// no-op.
func (s *Server) RemoveDocument(id int) {
	s.RemoveDocumentExec(Seq, id)
}

// RemoveDocumentExec removes id from the store; with Par, the per-term
// inverted-index updates fan out across goroutines while the forward index,
// document table, and id set still change under the single write lock, so no
// reader observes a half-removed document.
func (s *Server) RemoveDocumentExec(p Policy, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	freqs, ok := s.docWordFreqs[id]
	if !ok {
		if _, live := s.documents[id]; !live {
			return
		}
		// A document whose every token was a stop word has no postings.
		s.dropDocumentRecord(id)
		return
	}

	words := make([]string, 0, len(freqs))
	for word := range freqs {
		words = append(words, word)
	}

	if p == Par {
		// Each goroutine deletes from a distinct posting map; the outer
		// index is only read here and pruned sequentially below.
		emptied := make([]bool, len(words))
		parallelFor(len(words), func(i int) {
			postings := s.wordDocFreqs[words[i]]
			delete(postings, id)
			emptied[i] = len(postings) == 0
		})
		for i, word := range words {
			if emptied[i] {
				delete(s.wordDocFreqs, word)
			}
		}
	} else {
		for _, word := range words {
			postings := s.wordDocFreqs[word]
			delete(postings, id)
			if len(postings) == 0 {
				delete(s.wordDocFreqs, word)
			}
		}
	}

	delete(s.docWordFreqs, id)
	s.dropDocumentRecord(id)
	s.logger.Debug("document removed", "doc_id", id, "policy", p.String())
}

func (s *Server) dropDocumentRecord(id int) {
	delete(s.documents, id)
	pos := sort.SearchInts(s.docIDs, id)
	if pos < len(s.docIDs) && s.docIDs[pos] == id {
		s.docIDs = append(s.docIDs[:pos], s.docIDs[pos+1:]...)
	}
}

// DocumentCount returns the number of live documents.
func (s *Server) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// DocumentIDs returns the live document ids in ascending order.
func (s *Server) DocumentIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, len(s.docIDs))
	copy(ids, s.docIDs)
	return ids
}

var emptyFreqs = map[string]float64{}

// WordFrequencies returns the forward-index view (term -> TF) for id, or a
// shared empty map when id is not live. The returned map is live store
// state: callers must treat it as read-only and not retain it across writes.
func (s *Server) WordFrequencies(id int) map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if freqs, ok := s.docWordFreqs[id]; ok {
		return freqs
	}
	return emptyFreqs
}

// isValidWord reports whether word is free of control bytes.
func isValidWord(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < 0x20 {
			return false
		}
	}
	return true
}

func (s *Server) isStopWord(word string) bool {
	_, ok := s.stopWords[word]
	return ok
}

func (s *Server) splitIntoWordsNoStop(text string) []string {
	words := tokenizer.SplitIntoWords(text)
	kept := words[:0:len(words)]
	for _, word := range words {
		if !s.isStopWord(word) {
			kept = append(kept, word)
		}
	}
	return kept
}

// computeAverageRating truncates toward zero, matching integer division.
func computeAverageRating(ratings []int) int {
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}
