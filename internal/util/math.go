package util

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Chunks splits [0,n) into consecutive [start,end) ranges of at most size elements.
func Chunks(n, size int) [][2]int {
	if n <= 0 || size <= 0 {
		return nil
	}
	result := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		result = append(result, [2]int{start, Min(start+size, n)})
	}
	return result
}
