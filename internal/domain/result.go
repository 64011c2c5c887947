package domain

// Result carries one element of a batch operation: either the value or a
// description of that element's failure. Batch operations that tolerate
// per-item failure thread Result through the batch instead of aborting on
// the first error, which keeps the "isolated failure, batch survives"
// contract explicit.
type Result[T any] struct {
	Value T
	Err   string
}

// Ok wraps a successful per-item value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail records a per-item failure description.
func Fail[T any](desc string) Result[T] {
	return Result[T]{Err: desc}
}

// Failed reports whether this item failed.
func (r Result[T]) Failed() bool {
	return r.Err != ""
}
