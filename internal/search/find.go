package search

import (
	"math"
	"sort"
	"sync"

	"github.com/avelichko/searchserver/internal/search/cmap"
)

// relevanceEpsilon is the comparator tolerance: documents whose relevances
// differ by less than this are ordered by rating instead.
const relevanceEpsilon = 1e-6

// FindTopDocuments runs the query against documents with status ACTUAL.
func (s *Server) FindTopDocuments(rawQuery string) ([]Document, error) {
	return s.FindTopDocumentsExec(Seq, rawQuery)
}

// FindTopDocumentsWithStatus runs the query against documents with the given
// status.
func (s *Server) FindTopDocumentsWithStatus(rawQuery string, status DocumentStatus) ([]Document, error) {
	return s.FindTopDocumentsExecWithStatus(Seq, rawQuery, status)
}

// FindTopDocumentsFiltered runs the query against documents accepted by the
// filter.
func (s *Server) FindTopDocumentsFiltered(rawQuery string, filter DocumentFilter) ([]Document, error) {
	return s.FindTopDocumentsExecFiltered(Seq, rawQuery, filter)
}

// FindTopDocumentsExec is FindTopDocuments under an execution policy.
func (s *Server) FindTopDocumentsExec(p Policy, rawQuery string) ([]Document, error) {
	return s.FindTopDocumentsExecWithStatus(p, rawQuery, StatusActual)
}

// FindTopDocumentsExecWithStatus is FindTopDocumentsWithStatus under an
// execution policy.
func (s *Server) FindTopDocumentsExecWithStatus(p Policy, rawQuery string, status DocumentStatus) ([]Document, error) {
	return s.FindTopDocumentsExecFiltered(p, rawQuery, StatusFilter(status))
}

// FindTopDocumentsExecFiltered parses and scores the query, orders results
// by relevance (rating breaking near-ties), and truncates to the result
// limit. With Par, scoring fans out one goroutine per plus term over a
// sharded accumulator; the returned order is identical to Seq.
func (s *Server) FindTopDocumentsExecFiltered(p Policy, rawQuery string, filter DocumentFilter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, err := s.parseQuery(rawQuery, true)
	if err != nil {
		return nil, err
	}

	result := s.findAllDocuments(p, q, filter)

	sort.SliceStable(result, func(i, j int) bool {
		if math.Abs(result[i].Relevance-result[j].Relevance) < relevanceEpsilon {
			return result[i].Rating > result[j].Rating
		}
		return result[i].Relevance > result[j].Relevance
	})
	if len(result) > s.maxResults {
		result = result[:s.maxResults]
	}
	return result, nil
}

// findAllDocuments scores every candidate. Callers hold at least the read
// lock.
func (s *Server) findAllDocuments(p Policy, q parsedQuery, filter DocumentFilter) []Document {
	excluded := make(map[int]struct{})
	for _, word := range q.minus {
		for id := range s.wordDocFreqs[word] {
			excluded[id] = struct{}{}
		}
	}

	score := func(word string, accumulate func(id int, delta float64)) {
		postings, ok := s.wordDocFreqs[word]
		if !ok {
			return
		}
		idf := s.wordIDF(word)
		for id, tf := range postings {
			if _, skip := excluded[id]; skip {
				continue
			}
			params := s.documents[id]
			if !filter(id, params.status, params.rating) {
				continue
			}
			accumulate(id, tf*idf)
		}
	}

	var relevance map[int]float64
	if p == Par {
		acc := cmap.New(s.shardCount)
		var wg sync.WaitGroup
		for _, word := range q.plus {
			wg.Add(1)
			go func(word string) {
				defer wg.Done()
				score(word, func(id int, delta float64) {
					a := acc.Access(id)
					*a.Value += delta
					a.Release()
				})
			}(word)
		}
		wg.Wait()
		relevance = acc.Drain()
	} else {
		relevance = make(map[int]float64)
		for _, word := range q.plus {
			score(word, func(id int, delta float64) {
				relevance[id] += delta
			})
		}
	}

	// Emit in ascending id order so the stable sort above is deterministic
	// and the parallel path orders identically to the sequential one.
	ids := make([]int, 0, len(relevance))
	for id := range relevance {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := make([]Document, 0, len(ids))
	for _, id := range ids {
		result = append(result, Document{
			ID:        id,
			Relevance: relevance[id],
			Rating:    s.documents[id].rating,
		})
	}
	return result
}

// wordIDF is ln(N / df) for a term known to the inverted index.
func (s *Server) wordIDF(word string) float64 {
	return math.Log(float64(len(s.documents)) / float64(len(s.wordDocFreqs[word])))
}
