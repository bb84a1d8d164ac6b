package search

import (
	"log/slog"
	"slices"
	"strings"
)

// RemoveDuplicates scans documents in ascending id order and removes every
// document whose vocabulary (distinct term set, frequencies ignored) was
// already seen, so the smallest id among equivalents survives. Removed ids
// are returned in ascending order.
func RemoveDuplicates(s *Server) []int {
	logger := slog.Default().With("component", "deduplicator")

	seen := make(map[string]struct{})
	var duplicates []int
	for _, id := range s.DocumentIDs() {
		freqs := s.WordFrequencies(id)
		words := make([]string, 0, len(freqs))
		for word := range freqs {
			words = append(words, word)
		}
		slices.Sort(words)
		// Terms cannot contain spaces, so a space-joined key is unambiguous.
		key := strings.Join(words, " ")
		if _, dup := seen[key]; dup {
			duplicates = append(duplicates, id)
			continue
		}
		seen[key] = struct{}{}
	}

	for _, id := range duplicates {
		s.RemoveDocument(id)
		logger.Info("found duplicate document", "doc_id", id)
	}
	return duplicates
}
