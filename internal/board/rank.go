package board

// Reorder returns a copy of list with the element at src moved to dst.
// A dst past the end moves the element to the end. An out-of-range src or
// src == dst returns an unchanged copy. Callers assign ranks by position.
func Reorder[T any](list []T, src, dst int) []T {
	out := make([]T, len(list))
	copy(out, list)
	if src == dst || src < 0 || src >= len(list) || dst < 0 {
		return out
	}

	moved := out[src]
	out = append(out[:src], out[src+1:]...)
	if dst > len(out) {
		dst = len(out)
	}
	out = append(out, moved)
	copy(out[dst+1:], out[dst:len(out)-1])
	out[dst] = moved
	return out
}
