package model

import "strings"

// CountWords đếm số từ theo whitespace.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Progress towards the legend threshold, clamped to [0, 1].
func Progress(words int) float64 {
	if words <= 0 {
		return 0
	}
	p := float64(words) / LegendThreshold
	if p > 1 {
		return 1
	}
	return p
}

func IsLegend(words int) bool {
	return words >= LegendThreshold
}
