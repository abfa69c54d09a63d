package slicex

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

func Sum[T Number](arr []T) T {
	var sum T
	for _, value := range arr {
		sum += value
	}
	return sum
}

func Avg[T Number](arr []T) float64 {
	if len(arr) == 0 {
		return 0
	}
	return float64(Sum(arr)) / float64(len(arr))
}
