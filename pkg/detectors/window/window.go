// Package window builds overlapping fixed-length sequences from ordered
// feature vectors, for backends that require temporal context.
package window

// Slide returns the overlapping windows of length size over data, in
// left-to-right order. Each window shares size-1 vectors with its neighbor.
// For an input of length L it returns exactly L-size+1 windows; inputs
// shorter than size yield no windows. Windows alias the input rows, they
// do not copy them.
func Slide(data [][]float64, size int) [][][]float64 {
	if size <= 0 || len(data) < size {
		return nil
	}

	windows := make([][][]float64, 0, len(data)-size+1)
	for i := 0; i+size <= len(data); i++ {
		windows = append(windows, data[i:i+size])
	}
	return windows
}

// Count returns the number of windows Slide would produce without
// materializing them.
func Count(n, size int) int {
	if size <= 0 || n < size {
		return 0
	}
	return n - size + 1
}
