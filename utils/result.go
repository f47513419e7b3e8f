package utils

// Result is the outcome of a job run in its own goroutine,
// e.g. the catalogue fetched for one survey
type Result[T any] struct {
	Ok  T
	Err error
}

// Ok wraps a successful value
func Ok[T any](ok T) Result[T] {
	return Result[T]{ok, nil}
}

// Err wraps a failure, Ok is the zero value of T
func Err[T any](err error) Result[T] {
	var ok T
	return Result[T]{ok, err}
}
