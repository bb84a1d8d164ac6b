// Package bulk fans a batch of queries out across goroutines while keeping
// the output aligned with the input order.
package bulk

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/avelichko/searchserver/internal/search"
)

// ProcessQueries runs FindTopDocuments for every query concurrently.
// Element i of the result is the response to queries[i]. The first query
// error aborts the batch.
func ProcessQueries(s *search.Server, queries []string) ([][]search.Document, error) {
	results := make([][]search.Document, len(queries))
	var g errgroup.Group
	for i, query := range queries {
		g.Go(func() error {
			docs, err := s.FindTopDocuments(query)
			if err != nil {
				return fmt.Errorf("query %q: %w", query, err)
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessQueriesJoined flattens the per-query results of ProcessQueries into
// one sequence, concatenated in input-index order.
func ProcessQueriesJoined(s *search.Server, queries []string) ([]search.Document, error) {
	perQuery, err := ProcessQueries(s, queries)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, docs := range perQuery {
		total += len(docs)
	}
	joined := make([]search.Document, 0, total)
	for _, docs := range perQuery {
		joined = append(joined, docs...)
	}
	return joined, nil
}
