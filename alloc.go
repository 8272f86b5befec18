package shadowjson

// An Allocator supplies and reclaims storage for a Parser's assembly buffer.
// The default Allocator used by New defers entirely to the Go runtime; it
// exists so that ParseOwned/ParseMultiOwned and SetAssemblyAllocator have a
// caller-pluggable arena to hook into.
type Allocator interface {
	// Alloc returns a new slice of Nodes with the given length and at least
	// that capacity. The returned slice's contents are unspecified.
	Alloc(n int) []Node

	// Free releases a slice previously returned by Alloc. Implementations
	// that rely on garbage collection may treat this as a no-op.
	Free([]Node)
}

// heapAllocator is the default Allocator: every call to Alloc makes a fresh
// Go slice and Free is a no-op, leaving reclamation to the garbage collector.
type heapAllocator struct{}

func (heapAllocator) Alloc(n int) []Node { return make([]Node, n) }
func (heapAllocator) Free([]Node)        {}

// DefaultAllocator is the heap-backed Allocator used when no Allocator is
// supplied to New.
var DefaultAllocator Allocator = heapAllocator{}
