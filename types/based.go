package types

/*
Array is a based array view: element i lives at Data[i-Base], so graphs numbered
from 0 or from 1 go through the same code without any pointer offsetting.
A zero-length Data means the array is absent (implicit unit weights, identity
numbering, ...).
*/
type Array[T any] struct {
	Base int
	Data []T
}

func NewArray[T any](base, n int) Array[T] {
	return Array[T]{Base: base, Data: make([]T, n)}
}

// Wrap views an existing slice as a based array without copying it.
func Wrap[T any](base int, data []T) Array[T] {
	return Array[T]{Base: base, Data: data}
}

func (a Array[T]) At(i int) T       { return a.Data[i-a.Base] }
func (a Array[T]) Set(i int, val T) { a.Data[i-a.Base] = val }
func (a Array[T]) Ptr(i int) *T     { return &a.Data[i-a.Base] }
func (a Array[T]) Len() int         { return len(a.Data) }

// Nnd returns one past the last valid based index.
func (a Array[T]) Nnd() int { return a.Base + len(a.Data) }

// Has reports whether the array is present.
func (a Array[T]) Has() bool { return len(a.Data) != 0 }

// Slice returns the raw elements of the based range [i1, i2).
func (a Array[T]) Slice(i1, i2 int) []T { return a.Data[i1-a.Base : i2-a.Base] }

func (a Array[T]) Clone() Array[T] {
	if a.Data == nil {
		return Array[T]{Base: a.Base}
	}
	data := make([]T, len(a.Data))
	copy(data, a.Data)
	return Array[T]{Base: a.Base, Data: data}
}

func (a Array[T]) Fill(val T) Array[T] {
	for i := range a.Data {
		a.Data[i] = val
	}
	return a
}

// IntArrayOf is a helper for the common case of an implicit weight array:
// it returns a.At(i) when the array is present and def otherwise.
func IntArrayOf(a Array[int], i, def int) int {
	if len(a.Data) == 0 {
		return def
	}
	return a.At(i)
}
