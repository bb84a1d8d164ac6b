package search

import (
	"fmt"
	"strconv"
)

// DocumentStatus is the lifecycle state a document was added with.
type DocumentStatus int

const (
	StatusActual DocumentStatus = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

// String renders the status as its integer value, which is the wire and
// display form.
func (s DocumentStatus) String() string {
	return strconv.Itoa(int(s))
}

// ValidStatus reports whether v names one of the four statuses.
func ValidStatus(v int) bool {
	return v >= int(StatusActual) && v <= int(StatusRemoved)
}

// Document is one ranked search result.
type Document struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

func (d Document) String() string {
	return fmt.Sprintf("{ document_id = %d, relevance = %g, rating = %d }", d.ID, d.Relevance, d.Rating)
}

// DocumentFilter decides whether a document may appear in results.
type DocumentFilter func(id int, status DocumentStatus, rating int) bool

// StatusFilter returns a filter accepting only documents with the given
// status.
func StatusFilter(status DocumentStatus) DocumentFilter {
	return func(_ int, documentStatus DocumentStatus, _ int) bool {
		return documentStatus == status
	}
}

// Policy selects sequential or parallel execution for operations that
// support both.
type Policy int

const (
	Seq Policy = iota
	Par
)

func (p Policy) String() string {
	if p == Par {
		return "par"
	}
	return "seq"
}
