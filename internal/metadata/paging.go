package metadata

// PageCount returns the number of pages needed for n items, at least 1.
func PageCount(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// PageBounds returns the [start, end) slice bounds of page p (0-based),
// clamping p into range.
func PageBounds(n, size, p int) (start, end int, page int) {
	pages := PageCount(n, size)
	if p < 0 {
		p = 0
	}
	if p >= pages {
		p = pages - 1
	}
	if size <= 0 {
		return 0, n, 0
	}
	start = p * size
	if start > n {
		start = n
	}
	end = start + size
	if end > n {
		end = n
	}
	return start, end, p
}
