package main

import "fmt"

func formatProgress(progress float64) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return fmt.Sprintf("%3.0f%%", progress*100)
}
