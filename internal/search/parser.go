package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/avelichko/searchserver/internal/search/tokenizer"
	apperrors "github.com/avelichko/searchserver/pkg/errors"
)

type queryWord struct {
	word    string
	isMinus bool
}

type parsedQuery struct {
	plus  []string
	minus []string
}

// validateRawQuery applies the structural rules to the whole query before
// tokenization: no "--" anywhere, no trailing '-', no control bytes.
func validateRawQuery(raw string) error {
	if strings.Contains(raw, "--") {
		return fmt.Errorf("query contains \"--\": %w", apperrors.ErrInvalidQuery)
	}
	trimmed := strings.TrimRight(raw, " ")
	if trimmed != "" && trimmed[len(trimmed)-1] == '-' {
		return fmt.Errorf("query ends with '-': %w", apperrors.ErrInvalidQuery)
	}
	if !isValidWord(raw) {
		return fmt.Errorf("query contains control characters: %w", apperrors.ErrInvalidQuery)
	}
	return nil
}

func parseQueryWord(word string) (queryWord, error) {
	if word[len(word)-1] == '-' {
		return queryWord{}, fmt.Errorf("word %q ends with '-': %w", word, apperrors.ErrInvalidQuery)
	}
	if !isValidWord(word) {
		return queryWord{}, fmt.Errorf("word %q: %w", word, apperrors.ErrInvalidWord)
	}
	if word[0] == '-' {
		return queryWord{word: word[1:], isMinus: true}, nil
	}
	return queryWord{word: word}, nil
}

// parseQuery validates and tokenizes raw. With dedupe set, plus and minus
// terms come back sorted and unique; without it, multiplicity and order are
// preserved (the matching path wants the raw form).
func (s *Server) parseQuery(raw string, dedupe bool) (parsedQuery, error) {
	if err := validateRawQuery(raw); err != nil {
		return parsedQuery{}, err
	}
	var q parsedQuery
	for _, word := range tokenizer.SplitIntoWords(raw) {
		if s.isStopWord(word) {
			continue
		}
		qw, err := parseQueryWord(word)
		if err != nil {
			return parsedQuery{}, err
		}
		if qw.isMinus {
			q.minus = append(q.minus, qw.word)
		} else {
			q.plus = append(q.plus, qw.word)
		}
	}
	if dedupe {
		q.plus = sortUnique(q.plus)
		q.minus = sortUnique(q.minus)
	}
	return q, nil
}

func sortUnique(words []string) []string {
	if len(words) < 2 {
		return words
	}
	out := append([]string(nil), words...)
	slices.Sort(out)
	return slices.Compact(out)
}
