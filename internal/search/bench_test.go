package search

import (
	"fmt"
	"testing"
)

func benchCorpus(b *testing.B, docs int) *Server {
	b.Helper()
	s, err := New([]string{"a", "the"})
	if err != nil {
		b.Fatal(err)
	}
	for id := 0; id < docs; id++ {
		text := fmt.Sprintf("term%d shared common the a term%d filler%d", id%100, id%10, id%7)
		if err := s.AddDocument(id, text, StatusActual, []int{id % 10}); err != nil {
			b.Fatal(err)
		}
	}
	return s
}

func BenchmarkAddDocument(b *testing.B) {
	s, _ := New(nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.AddDocument(i, "white cat and fancy collar with several shared terms", StatusActual, []int{4, 2})
	}
}

func BenchmarkFindTopDocuments(b *testing.B) {
	for _, policy := range []Policy{Seq, Par} {
		b.Run(policy.String(), func(b *testing.B) {
			s := benchCorpus(b, 5000)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.FindTopDocumentsExec(policy, "shared common term5 -filler3"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRemoveDocument(b *testing.B) {
	for _, policy := range []Policy{Seq, Par} {
		b.Run(policy.String(), func(b *testing.B) {
			s := benchCorpus(b, b.N)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				s.RemoveDocumentExec(policy, i)
			}
		})
	}
}
