package util

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// CloneRows deep-copies a slice of byte rows. A nil src yields nil.
func CloneRows(src [][]byte) [][]byte {
	if src == nil {
		return nil
	}

	rows := make([][]byte, len(src))
	for i, row := range src {
		rows[i] = CloneSlice(row, 0)
	}

	return rows
}

// TrimTrailingZeros returns b without its trailing zero bytes. The result
// shares the underlying array with b.
func TrimTrailingZeros(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}

	return b[:end]
}
