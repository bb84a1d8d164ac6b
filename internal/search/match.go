package search

import (
	"fmt"
	"slices"
	"sync/atomic"

	apperrors "github.com/avelichko/searchserver/pkg/errors"
)

// MatchDocument returns the query's plus terms that occur in document id,
// sorted and deduplicated, together with the document's status. A minus term
// occurring in the document empties the result; minus terms unknown to the
// index are ignored.
func (s *Server) MatchDocument(rawQuery string, id int) ([]string, DocumentStatus, error) {
	return s.MatchDocumentExec(Seq, rawQuery, id)
}

// MatchDocumentExec is MatchDocument under an execution policy. The parallel
// path scans minus and plus terms concurrently; sorting and deduplication
// stay sequential.
func (s *Server) MatchDocumentExec(p Policy, rawQuery string, id int) ([]string, DocumentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	params, ok := s.documents[id]
	if !ok {
		return nil, 0, fmt.Errorf("document %d: %w", id, apperrors.ErrDocumentNotFound)
	}

	// Raw parse: matching wants the query's multiplicity and order intact.
	q, err := s.parseQuery(rawQuery, false)
	if err != nil {
		return nil, 0, err
	}

	contains := func(word string) bool {
		postings, ok := s.wordDocFreqs[word]
		if !ok {
			return false
		}
		_, ok = postings[id]
		return ok
	}

	matched := make([]string, 0, len(q.plus))
	if p == Par {
		var minusHit atomic.Bool
		parallelFor(len(q.minus), func(i int) {
			if contains(q.minus[i]) {
				minusHit.Store(true)
			}
		})
		if minusHit.Load() {
			return []string{}, params.status, nil
		}
		keep := make([]bool, len(q.plus))
		parallelFor(len(q.plus), func(i int) {
			keep[i] = contains(q.plus[i])
		})
		for i, word := range q.plus {
			if keep[i] {
				matched = append(matched, word)
			}
		}
	} else {
		for _, word := range q.minus {
			if contains(word) {
				return []string{}, params.status, nil
			}
		}
		for _, word := range q.plus {
			if contains(word) {
				matched = append(matched, word)
			}
		}
	}

	slices.Sort(matched)
	matched = slices.Compact(matched)
	return matched, params.status, nil
}
