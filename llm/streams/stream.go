// Package streams provides a pull based stream and its combinators.
package streams

// Stream is a pull based sequence of items.
// Next advances the stream, Current returns the item Next moved to.
// Err returns the error that stopped the stream, nil when it ended normally.
type Stream[T any] interface {
	Next() bool
	Current() T
	Err() error
	Close() error
}

type sliceStream[T any] struct {
	items []T
	index int
}

// SliceStream returns a stream over the items.
func SliceStream[T any](items []T) Stream[T] {
	return &sliceStream[T]{items: items}
}

func (s *sliceStream[T]) Next() bool {
	if s.index >= len(s.items) {
		return false
	}

	s.index++

	return true
}

func (s *sliceStream[T]) Current() T {
	if s.index == 0 || s.index > len(s.items) {
		var zero T
		return zero
	}

	return s.items[s.index-1]
}

func (s *sliceStream[T]) Err() error {
	return nil
}

func (s *sliceStream[T]) Close() error {
	return nil
}

type mapStream[T, R any] struct {
	source  Stream[T]
	fn      func(T) (R, error)
	current R
	err     error
}

// Map transforms every item of the stream.
func Map[T, R any](stream Stream[T], fn func(T) R) Stream[R] {
	return MapErr(stream, func(item T) (R, error) {
		return fn(item), nil
	})
}

// MapErr transforms every item of the stream, the first error stops the stream.
func MapErr[T, R any](stream Stream[T], fn func(T) (R, error)) Stream[R] {
	return &mapStream[T, R]{source: stream, fn: fn}
}

func (s *mapStream[T, R]) Next() bool {
	if s.err != nil || !s.source.Next() {
		return false
	}

	current, err := s.fn(s.source.Current())
	if err != nil {
		s.err = err
		return false
	}

	s.current = current

	return true
}

func (s *mapStream[T, R]) Current() R {
	return s.current
}

func (s *mapStream[T, R]) Err() error {
	if s.err != nil {
		return s.err
	}

	return s.source.Err()
}

func (s *mapStream[T, R]) Close() error {
	return s.source.Close()
}

type filterStream[T any] struct {
	source Stream[T]
	keep   func(T) bool
}

// Filter drops the items keep returns false for.
func Filter[T any](stream Stream[T], keep func(T) bool) Stream[T] {
	return &filterStream[T]{source: stream, keep: keep}
}

func (s *filterStream[T]) Next() bool {
	for s.source.Next() {
		if s.keep(s.source.Current()) {
			return true
		}
	}

	return false
}

func (s *filterStream[T]) Current() T {
	return s.source.Current()
}

func (s *filterStream[T]) Err() error {
	return s.source.Err()
}

func (s *filterStream[T]) Close() error {
	return s.source.Close()
}

type appendStream[T any] struct {
	source   Stream[T]
	appended []T
	index    int
	drained  bool
}

// AppendStream yields the items after the source ends.
// Nothing is appended when the source fails.
func AppendStream[T any](stream Stream[T], items ...T) Stream[T] {
	return &appendStream[T]{source: stream, appended: items}
}

func (s *appendStream[T]) Next() bool {
	if !s.drained {
		if s.source.Next() {
			return true
		}

		s.drained = true

		if s.source.Err() != nil {
			return false
		}
	}

	if s.source.Err() != nil || s.index >= len(s.appended) {
		return false
	}

	s.index++

	return true
}

func (s *appendStream[T]) Current() T {
	if !s.drained {
		return s.source.Current()
	}

	if s.index == 0 || s.index > len(s.appended) {
		var zero T
		return zero
	}

	return s.appended[s.index-1]
}

func (s *appendStream[T]) Err() error {
	return s.source.Err()
}

func (s *appendStream[T]) Close() error {
	return s.source.Close()
}
