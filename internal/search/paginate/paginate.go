// Package paginate chunks ordered sequences into fixed-size pages.
package paginate

// Paginate splits items into consecutive pages of at most size elements.
// Pages are subslices sharing the input's backing array. A non-positive size
// or empty input yields no pages.
func Paginate[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	pages := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		pages = append(pages, items[start:end:end])
	}
	return pages
}

// Page returns the zero-based n-th page, or an empty slice when n is out of
// range.
func Page[T any](items []T, size, n int) []T {
	pages := Paginate(items, size)
	if n < 0 || n >= len(pages) {
		return nil
	}
	return pages[n]
}

// Count reports how many pages Paginate would produce.
func Count[T any](items []T, size int) int {
	if size <= 0 || len(items) == 0 {
		return 0
	}
	return (len(items) + size - 1) / size
}
