package quality

import (
	"sort"

	"github.com/Iron-Ham/scribe/internal/document"
)

// SampleCap bounds the evenly spaced picks added to the mandatory members of
// a sample. It is not a bound on reviews per pass.
const SampleCap = 12

// Sample picks the task indices to review, sorted ascending. Documents with
// at most SampleCap sections are reviewed in full. Otherwise the first and
// last sections, every high or critical priority section and every section at
// level 1 or 2 are always included; remaining slots are filled with evenly
// spaced indices. Mandatory members are never dropped, so the sample can
// exceed SampleCap when the outline is mostly shallow. Planner leaves under a
// top-level chapter sit at level 2, so a typical two-level outline has every
// section sampled (up to 30 per pass).
func Sample(tasks []document.SectionTask) []int {
	n := len(tasks)
	if n <= SampleCap {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	chosen := map[int]bool{0: true, n - 1: true}
	for i, t := range tasks {
		if t.Priority.IsHigh() || t.Level == 1 || t.Level == 2 {
			chosen[i] = true
		}
	}

	if needed := SampleCap - len(chosen); needed > 0 {
		var rest []int
		for i := 0; i < n; i++ {
			if !chosen[i] {
				rest = append(rest, i)
			}
		}
		stride := float64(len(rest)) / float64(needed)
		for k := 0; k < needed && k < len(rest); k++ {
			chosen[rest[int(float64(k)*stride)]] = true
		}
	}

	out := make([]int, 0, len(chosen))
	for i := range chosen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
