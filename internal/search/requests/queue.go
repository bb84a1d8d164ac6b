// Package requests tracks a sliding window of recent query outcomes so the
// service can report how many of the last N queries came back empty.
package requests

import (
	"sync"

	"github.com/avelichko/searchserver/internal/search"
)

// DefaultWindow is the number of submissions the tracker remembers, one per
// minute of a day.
const DefaultWindow = 1440

type queryResult struct {
	requestTime int
	isEmpty     bool
}

// Queue forwards queries to the engine and keeps a FIFO of the outcomes of
// the last window submissions, maintaining the empty count incrementally.
type Queue struct {
	server *search.Server
	window int

	mu            sync.Mutex
	requests      []queryResult
	currentTime   int
	noResultCount int
}

// NewQueue creates a tracker over server. A non-positive window selects
// DefaultWindow.
func NewQueue(server *search.Server, window int) *Queue {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Queue{server: server, window: window}
}

// AddFindRequest runs the query with the default ACTUAL filter and records
// the outcome.
func (q *Queue) AddFindRequest(rawQuery string) ([]search.Document, error) {
	docs, err := q.server.FindTopDocuments(rawQuery)
	if err != nil {
		return nil, err
	}
	q.Observe(docs)
	return docs, nil
}

// AddFindRequestWithStatus runs the query filtered by status and records the
// outcome.
func (q *Queue) AddFindRequestWithStatus(rawQuery string, status search.DocumentStatus) ([]search.Document, error) {
	docs, err := q.server.FindTopDocumentsWithStatus(rawQuery, status)
	if err != nil {
		return nil, err
	}
	q.Observe(docs)
	return docs, nil
}

// AddFindRequestFiltered runs the query with a caller filter and records the
// outcome.
func (q *Queue) AddFindRequestFiltered(rawQuery string, filter search.DocumentFilter) ([]search.Document, error) {
	docs, err := q.server.FindTopDocumentsFiltered(rawQuery, filter)
	if err != nil {
		return nil, err
	}
	q.Observe(docs)
	return docs, nil
}

// AddFindRequestExec runs the status-filtered query under an execution
// policy and records the outcome.
func (q *Queue) AddFindRequestExec(p search.Policy, rawQuery string, status search.DocumentStatus) ([]search.Document, error) {
	docs, err := q.server.FindTopDocumentsExecWithStatus(p, rawQuery, status)
	if err != nil {
		return nil, err
	}
	q.Observe(docs)
	return docs, nil
}

// Observe records an already-computed response, advancing the window. Used
// directly when a response is served from a cache rather than the engine.
func (q *Queue) Observe(response []search.Document) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.currentTime++
	result := queryResult{requestTime: q.currentTime, isEmpty: len(response) == 0}
	q.requests = append(q.requests, result)
	if result.isEmpty {
		q.noResultCount++
	}
	for len(q.requests) > 0 && q.requests[0].requestTime <= q.currentTime-q.window {
		if q.requests[0].isEmpty {
			q.noResultCount--
		}
		q.requests = q.requests[1:]
	}
}

// NoResultRequests returns how many of the windowed submissions returned no
// documents.
func (q *Queue) NoResultRequests() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.noResultCount
}
