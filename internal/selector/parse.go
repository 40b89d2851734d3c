package selector

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	labeledNumberPattern = regexp.MustCompile(`선정\s*번호\s*[:：]\s*(\d+)`)
	numberPattern        = regexp.MustCompile(`번호\s*[:：]\s*(\d+)`)
	leadingNumberPattern = regexp.MustCompile(`^(\d+)`)
	anyNumberPattern     = regexp.MustCompile(`\d+`)
)

// Selection is the outcome of reading a model answer: Parsed or Unparseable.
type Selection interface {
	isSelection()
}

// Parsed carries the 1-based candidate number the model named.
type Parsed struct {
	Number int
}

// Unparseable keeps the raw answer for diagnostics.
type Unparseable struct {
	Raw string
}

func (Parsed) isSelection()      {}
func (Unparseable) isSelection() {}

// ParseSelection looks for "선정 번호: N", then "번호: N", then a leading number.
func ParseSelection(text string) Selection {
	text = strings.TrimSpace(text)
	for _, re := range []*regexp.Regexp{labeledNumberPattern, numberPattern, leadingNumberPattern} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// only overflow gets here
			continue
		}
		return Parsed{Number: n}
	}
	return Unparseable{Raw: text}
}

// Resolve maps a selection onto a 0-based index into n candidates.
// It reports false for Unparseable and for numbers outside [1, n].
func Resolve(sel Selection, n int) (int, bool) {
	p, ok := sel.(Parsed)
	if !ok {
		return 0, false
	}
	if p.Number < 1 || p.Number > n {
		return 0, false
	}
	return p.Number - 1, true
}

// ParseRanking returns the 0-based indices named in text, in the order they
// appear. Numbers outside [1, n] are ignored and only the first mention of
// each candidate counts.
func ParseRanking(text string, n int) []int {
	seen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for _, raw := range anyNumberPattern.FindAllString(text, -1) {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > n {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v-1)
	}
	return out
}
