package cache

// Status classifies the outcome of a cache read.
type Status uint8

const (
	// StatusMiss means the backend answered and the key or member is absent.
	StatusMiss Status = iota
	// StatusHit means the backend answered with a value.
	StatusHit
	// StatusUnavailable means the backend could not be reached or the
	// circuit breaker is open. It never means "definitively absent".
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusMiss:
		return "miss"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Result is the outcome of a cache read. Value holds the zero value unless
// Status is StatusHit.
type Result[T any] struct {
	Value  T
	Status Status
}

// Hit reports whether the value was found.
func (r Result[T]) Hit() bool { return r.Status == StatusHit }

// Miss reports whether the backend answered that the value is absent.
func (r Result[T]) Miss() bool { return r.Status == StatusMiss }

// Unavailable reports whether the backend could not answer.
func (r Result[T]) Unavailable() bool { return r.Status == StatusUnavailable }

// OrElse returns the cached value on a hit and def otherwise.
func (r Result[T]) OrElse(def T) T {
	if r.Status == StatusHit {
		return r.Value
	}
	return def
}

func hit[T any](v T) Result[T] { return Result[T]{Value: v, Status: StatusHit} }

func result[T any](v T, st Status) Result[T] {
	if st != StatusHit {
		var zero T
		return Result[T]{Value: zero, Status: st}
	}
	return Result[T]{Value: v, Status: st}
}
