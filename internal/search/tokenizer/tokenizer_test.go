package tokenizer

import (
	"reflect"
	"testing"
)

func TestSplitIntoWords(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "white cat collar", []string{"white", "cat", "collar"}},
		{"repeated spaces", "fluffy   cat", []string{"fluffy", "cat"}},
		{"leading and trailing", "  dog eyes  ", []string{"dog", "eyes"}},
		{"single word", "starling", []string{"starling"}},
		{"empty", "", []string{}},
		{"only spaces", "    ", []string{}},
		{"minus terms survive", "cat -collar", []string{"cat", "-collar"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitIntoWords(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SplitIntoWords(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestSplitIntoWordsOnlySpaceByte(t *testing.T) {
	// Splitting is on 0x20 only; other whitespace stays inside the token.
	got := SplitIntoWords("cat\tdog")
	if len(got) != 1 || got[0] != "cat\tdog" {
		t.Errorf("SplitIntoWords(%q) = %v, want one token", "cat\tdog", got)
	}
}

func TestSplitIntoWordsBorrowsInput(t *testing.T) {
	text := "white cat"
	words := SplitIntoWords(text)
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[0] != text[:5] || words[1] != text[6:] {
		t.Errorf("words %v do not match input slices", words)
	}
}
