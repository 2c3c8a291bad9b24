package streams

// All drains the stream and closes it.
func All[T any](stream Stream[T]) ([]T, error) {
	defer stream.Close()

	var result []T

	for stream.Next() {
		result = append(result, stream.Current())
	}

	return result, stream.Err()
}
