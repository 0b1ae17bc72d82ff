// Package regions compiles transcript models into labeled BED intervals.
package regions

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Selection is a set of 1-based exon or intron numbers in transcript order.
// The zero value places no restriction (include all).
type Selection struct {
	all  bool
	nums map[int]bool
}

// SelectAll returns a selection that includes every number.
func SelectAll() Selection {
	return Selection{all: true}
}

// NewSelection returns a selection restricted to the given numbers.
func NewSelection(nums ...int) Selection {
	s := Selection{nums: make(map[int]bool, len(nums))}
	for _, n := range nums {
		s.nums[n] = true
	}
	return s
}

// IsAll reports whether the selection places no restriction.
func (s Selection) IsAll() bool {
	return s.all || s.nums == nil
}

// Contains reports whether n is included in the selection.
func (s Selection) Contains(n int) bool {
	if s.IsAll() {
		return true
	}
	return s.nums[n]
}

// Len returns the number of explicitly selected values (0 for All).
func (s Selection) Len() int {
	return len(s.nums)
}

// Values returns the explicit numbers in ascending order (nil for All).
func (s Selection) Values() []int {
	if s.IsAll() {
		return nil
	}
	vals := make([]int, 0, len(s.nums))
	for n := range s.nums {
		vals = append(vals, n)
	}
	sort.Ints(vals)
	return vals
}

// Without returns a copy of the selection with the given numbers removed.
// Calling Without on an All selection returns All unchanged.
func (s Selection) Without(nums []int) Selection {
	if s.IsAll() {
		return s
	}
	out := Selection{nums: make(map[int]bool, len(s.nums))}
	for n := range s.nums {
		out.nums[n] = true
	}
	for _, n := range nums {
		delete(out.nums, n)
	}
	return out
}

// FilterSyntaxError describes an invalid exon/intron filter expression.
type FilterSyntaxError struct {
	Token  string
	Reason string
}

func (e *FilterSyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("invalid filter: %s", e.Reason)
	}
	return fmt.Sprintf("invalid filter token %q: %s", e.Token, e.Reason)
}

// ParseFilter parses an exon/intron filter expression into a Selection.
// A blank string or the word "all" (case-insensitive) selects everything.
// Otherwise the expression is a comma-separated list of non-negative
// integers and lo-hi ranges, e.g. "1,3,5-7". Numbers are 1-based and refer
// to transcript-order numbering.
func ParseFilter(text string) (Selection, error) {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" || trimmed == "all" {
		return SelectAll(), nil
	}

	compact := strings.ReplaceAll(trimmed, " ", "")
	nums := make(map[int]bool)

	for _, part := range strings.Split(compact, ",") {
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			loN, loErr := strconv.Atoi(lo)
			hiN, hiErr := strconv.Atoi(hi)
			if loErr != nil || hiErr != nil || loN < 0 || hiN < 0 {
				return Selection{}, &FilterSyntaxError{Token: part, Reason: "use a range like '5-9'"}
			}
			if loN > hiN {
				return Selection{}, &FilterSyntaxError{Token: part, Reason: "range start must be <= end"}
			}
			for n := loN; n <= hiN; n++ {
				nums[n] = true
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Selection{}, &FilterSyntaxError{Token: part, Reason: "use integers, commas and ranges (e.g. '1,3,5-7')"}
		}
		nums[n] = true
	}

	if len(nums) == 0 {
		return Selection{}, &FilterSyntaxError{Reason: "empty after parsing"}
	}
	return Selection{nums: nums}, nil
}
