package mps

import "math/bits"

// Rounds returns the number of pairwise reduction rounds for a chain of
// size sites, ceil(log2(size)).
func Rounds(size int) int {
	if size <= 1 {
		return 0
	}
	return bits.Len(uint(size - 1))
}

// reduce multiplies items down to one in a balanced binary tree. Each round
// splits the sequence into a first and second half and pairs item j with
// item j+half, so for eight items the first round forms (0,4) (1,5) (2,6)
// (3,7). len(items) must be a power of two.
func reduce[T any](items []T, mul func(a, b T) (T, error)) (T, error) {
	for len(items) > 1 {
		half := len(items) / 2
		next := make([]T, half)
		for j := 0; j < half; j++ {
			p, err := mul(items[j], items[j+half])
			if err != nil {
				var zero T
				return zero, err
			}
			next[j] = p
		}
		items = next
	}
	return items[0], nil
}

// Schedule lists, for every reduction round, the positions paired in that
// round. Positions refer to the sequence as it stands at the start of the
// round.
func Schedule(size int) ([][][2]int, error) {
	if !isPowerOfTwo(size) {
		return nil, &UnsupportedSizeError{Size: size}
	}
	var out [][][2]int
	for n := size; n > 1; n /= 2 {
		half := n / 2
		round := make([][2]int, half)
		for j := range round {
			round[j] = [2]int{j, j + half}
		}
		out = append(out, round)
	}
	return out, nil
}
