package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// compactDurationRe matches offsets like +3d, -1w, 2m.
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([dwmy])$`)

var nlp = newNLP()

func newNLP() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ResolveDate turns user input into a YYYY-MM-DD date. Accepted forms, in
// order: an absolute date, a compact offset from today (+3d, 1w), or a
// natural-language phrase ("next friday", "tomorrow").
func ResolveDate(input string, now time.Time, loc *time.Location) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("clock: empty date")
	}
	base := now.In(locOrUTC(loc))

	if _, err := time.Parse(DateLayout, s); err == nil {
		return s, nil
	}
	if m := compactDurationRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return "", fmt.Errorf("clock: invalid offset %q: %w", s, err)
		}
		if m[1] == "-" {
			n = -n
		}
		return FormatDate(applyOffset(base, n, m[3])), nil
	}

	r, err := nlp.Parse(s, base)
	if err != nil {
		return "", fmt.Errorf("clock: parse %q: %w", s, err)
	}
	if r == nil {
		return "", fmt.Errorf("clock: unrecognised date %q", s)
	}
	return FormatDate(r.Time.In(base.Location())), nil
}

func applyOffset(base time.Time, n int, unit string) time.Time {
	switch unit {
	case "d":
		return base.AddDate(0, 0, n)
	case "w":
		return base.AddDate(0, 0, n*7)
	case "m":
		return base.AddDate(0, n, 0)
	case "y":
		return base.AddDate(n, 0, 0)
	}
	return base
}
