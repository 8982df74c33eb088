// Package revision tracks how many times a task's deadline slipped after the
// task had already moved past active work.
package revision

import (
	"fmt"

	"github.com/zulandar/capstone/internal/apperr"
)

// MaxCount is the last revision a task may reach.
const MaxCount = 10

// Next returns count+1, or apperr.ErrRevisionCeiling if that would exceed MaxCount.
func Next(count int) (int, error) {
	if count < 0 {
		count = 0
	}
	if count+1 > MaxCount {
		return count, apperr.ErrRevisionCeiling
	}
	return count + 1, nil
}

// AtCeiling reports whether no further revision is possible.
func AtCeiling(count int) bool {
	return count >= MaxCount
}

// Label renders a revision count for display: "No Revision", "1st Revision", ...
func Label(count int) string {
	if count <= 0 {
		return "No Revision"
	}
	return Ordinal(count) + " Revision"
}

// Ordinal formats n as an English ordinal (1st, 2nd, 3rd, 4th, 11th, 21st).
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
