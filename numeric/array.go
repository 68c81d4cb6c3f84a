package numeric

// Matrix is a generic matrix.
type Matrix[T any] struct {
	Rows, Cols int
	Data       []T
}

// NewMatrix allocates a matrix of zero values.
func NewMatrix[T any](rows, cols int) *Matrix[T] {
	return &Matrix[T]{Rows: rows, Cols: cols, Data: make([]T, rows*cols)}
}

// At returns element (i,j).
func (m *Matrix[T]) At(i, j int) T {
	return m.Data[i*m.Cols+j]
}

// Set assigns element (i,j) = v.
func (m *Matrix[T]) Set(i, j int, v T) {
	m.Data[i*m.Cols+j] = v
}

// Row returns a copy of row i.
func (m *Matrix[T]) Row(i int) []T {
	out := make([]T, m.Cols)
	copy(out, m.Data[i*m.Cols:(i+1)*m.Cols])
	return out
}

// Array is a dense row-major array with one axis per entry of Shape; the
// last axis varies fastest.
type Array[T any] struct {
	Shape []int
	Data  []T
}

// NewArray allocates an array of zero values with the given shape.
func NewArray[T any](shape []int) *Array[T] {
	s := make([]int, len(shape))
	copy(s, shape)
	return &Array[T]{Shape: s, Data: make([]T, Prod(shape))}
}

// Len returns the number of entries.
func (a *Array[T]) Len() int { return len(a.Data) }

// At returns the entry at multi-index idx.
func (a *Array[T]) At(idx []int) T {
	return a.Data[Ravel(idx, a.Shape)]
}

// Set assigns the entry at multi-index idx.
func (a *Array[T]) Set(idx []int, v T) {
	a.Data[Ravel(idx, a.Shape)] = v
}

// Prod returns the product of the entries of shape.
func Prod(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Ravel maps a multi-index to its flat row-major position.
func Ravel(idx, shape []int) int {
	if len(idx) != len(shape) {
		panic("Ravel: rank mismatch")
	}
	flat := 0
	for j, s := range shape {
		if idx[j] < 0 || idx[j] >= s {
			panic("Ravel: index out of range")
		}
		flat = flat*s + idx[j]
	}
	return flat
}

// Unravel is the inverse of Ravel. It is also the mixed-radix counter used
// to enumerate shifts: the first axis is the most significant digit.
func Unravel(flat int, shape []int) []int {
	idx := make([]int, len(shape))
	for j := len(shape) - 1; j >= 0; j-- {
		idx[j] = flat % shape[j]
		flat /= shape[j]
	}
	return idx
}

// Stride returns the flat distance between neighbours along axis.
func Stride(shape []int, axis int) int {
	s := 1
	for j := axis + 1; j < len(shape); j++ {
		s *= shape[j]
	}
	return s
}
