package bulk

import (
	"errors"
	"testing"

	"github.com/avelichko/searchserver/internal/search"
	apperrors "github.com/avelichko/searchserver/pkg/errors"
)

func newTestServer(t *testing.T) *search.Server {
	t.Helper()
	s, err := search.New([]string{"a", "in", "on"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	docs := []struct {
		id      int
		text    string
		ratings []int
	}{
		{0, "white cat and fancy collar", []int{8, -3}},
		{1, "fluffy cat fluffy tail", []int{7, 2, 7}},
		{2, "groomed dog expressive eyes", []int{5, -12, 2, 1}},
		{3, "white starling eugene", []int{9}},
	}
	for _, d := range docs {
		if err := s.AddDocument(d.id, d.text, search.StatusActual, d.ratings); err != nil {
			t.Fatalf("AddDocument(%d): %v", d.id, err)
		}
	}
	return s
}

func TestProcessQueriesPreservesInputOrder(t *testing.T) {
	s := newTestServer(t)
	queries := []string{"fluffy cat", "white", "nosuchterm", "groomed eyes"}

	got, err := ProcessQueries(s, queries)
	if err != nil {
		t.Fatalf("ProcessQueries: %v", err)
	}
	if len(got) != len(queries) {
		t.Fatalf("got %d result groups, want %d", len(got), len(queries))
	}
	for i, query := range queries {
		want, err := s.FindTopDocuments(query)
		if err != nil {
			t.Fatalf("FindTopDocuments(%q): %v", query, err)
		}
		if len(got[i]) != len(want) {
			t.Fatalf("query %q: got %v, want %v", query, got[i], want)
		}
		for j := range want {
			if got[i][j] != want[j] {
				t.Errorf("query %q: got %v, want %v", query, got[i], want)
			}
		}
	}
}

func TestProcessQueriesJoinedConcatenatesInOrder(t *testing.T) {
	s := newTestServer(t)
	queries := []string{"fluffy cat", "nosuchterm", "white"}

	joined, err := ProcessQueriesJoined(s, queries)
	if err != nil {
		t.Fatalf("ProcessQueriesJoined: %v", err)
	}

	var want []search.Document
	for _, query := range queries {
		docs, err := s.FindTopDocuments(query)
		if err != nil {
			t.Fatalf("FindTopDocuments(%q): %v", query, err)
		}
		want = append(want, docs...)
	}
	if len(joined) != len(want) {
		t.Fatalf("joined = %v, want %v", joined, want)
	}
	for i := range want {
		if joined[i] != want[i] {
			t.Fatalf("joined[%d] = %v, want %v", i, joined[i], want[i])
		}
	}
}

func TestProcessQueriesPropagatesErrors(t *testing.T) {
	s := newTestServer(t)
	_, err := ProcessQueries(s, []string{"fluffy cat", "bad --query"})
	if !errors.Is(err, apperrors.ErrInvalidQuery) {
		t.Errorf("ProcessQueries = %v, want ErrInvalidQuery", err)
	}
	_, err = ProcessQueriesJoined(s, []string{"trailing -"})
	if !errors.Is(err, apperrors.ErrInvalidQuery) {
		t.Errorf("ProcessQueriesJoined = %v, want ErrInvalidQuery", err)
	}
}

func TestProcessQueriesEmptyInput(t *testing.T) {
	s := newTestServer(t)
	got, err := ProcessQueries(s, nil)
	if err != nil {
		t.Fatalf("ProcessQueries: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}
