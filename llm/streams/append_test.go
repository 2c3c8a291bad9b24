package streams

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendStream(t *testing.T) {
	tests := []struct {
		name     string
		base     []int
		appended []int
		want     []int
	}{
		{name: "appends after source", base: []int{1, 2, 3}, appended: []int{4, 5}, want: []int{1, 2, 3, 4, 5}},
		{name: "empty base", base: []int{}, appended: []int{1, 2}, want: []int{1, 2}},
		{name: "no appends", base: []int{1, 2}, want: []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appended := AppendStream(SliceStream(tt.base), tt.appended...)

			var result []int
			for appended.Next() {
				result = append(result, appended.Current())
			}

			require.Equal(t, tt.want, result)
			require.NoError(t, appended.Err())
			require.NoError(t, appended.Close())
		})
	}
}

func TestAppendStream_ErrorInSource(t *testing.T) {
	testErr := errors.New("test error")
	appended := AppendStream[int](&errorStream[int]{items: []int{1, 2}, err: testErr}, 3, 4)

	var result []int
	for appended.Next() {
		result = append(result, appended.Current())
	}

	// Nothing is appended after a failure.
	require.Equal(t, []int{1, 2}, result)
	require.Equal(t, testErr, appended.Err())
	require.False(t, appended.Next())
}

// errorStream yields the items, then fails.
type errorStream[T any] struct {
	items []T
	index int
	err   error
}

func (s *errorStream[T]) Next() bool {
	if s.index < len(s.items) {
		s.index++
		return true
	}

	return false
}

func (s *errorStream[T]) Current() T {
	if s.index > 0 && s.index <= len(s.items) {
		return s.items[s.index-1]
	}

	var zero T

	return zero
}

func (s *errorStream[T]) Err() error {
	if s.index >= len(s.items) {
		return s.err
	}

	return nil
}

func (s *errorStream[T]) Close() error {
	return nil
}
