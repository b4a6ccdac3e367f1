package reason

import (
	"math"
	"sort"
)

// contingency is the 2x2 table of a pattern against a label:
//
//	            label   ¬label
//	pattern       a        b
//	¬pattern      c        d
type contingency struct {
	a, b, c, d int
}

func (t contingency) n() int { return t.a + t.b + t.c + t.d }

// chiSquare returns the chi-square statistic with Yates continuity
// correction and its p-value (df=1).
func (t contingency) chiSquare() (stat, p float64) {
	n := float64(t.n())
	if n == 0 {
		return 0, 1
	}
	a, b, c, d := float64(t.a), float64(t.b), float64(t.c), float64(t.d)
	row1, row2 := a+b, c+d
	col1, col2 := a+c, b+d
	if row1 == 0 || row2 == 0 || col1 == 0 || col2 == 0 {
		return 0, 1
	}
	diff := math.Abs(a*d-b*c) - n/2
	if diff < 0 {
		diff = 0
	}
	stat = n * diff * diff / (row1 * row2 * col1 * col2)
	// Survival function of chi-square with one degree of freedom.
	p = math.Erfc(math.Sqrt(stat / 2))
	return stat, p
}

// smallExpected reports whether any expected cell count is under 5, the
// usual threshold for preferring Fisher's exact test.
func (t contingency) smallExpected() bool {
	n := float64(t.n())
	if n == 0 {
		return true
	}
	a, b, c, d := float64(t.a), float64(t.b), float64(t.c), float64(t.d)
	rows := []float64{a + b, c + d}
	cols := []float64{a + c, b + d}
	for _, r := range rows {
		for _, col := range cols {
			if r*col/n < 5 {
				return true
			}
		}
	}
	return false
}

// fisherExact returns the one-sided p-value of Fisher's exact test:
// probability of a table at least as extreme (a at least as large) under
// fixed margins.
func (t contingency) fisherExact() float64 {
	row1 := t.a + t.b
	col1 := t.a + t.c
	n := t.n()
	if n == 0 {
		return 1
	}
	lo := t.a
	hi := row1
	if col1 < hi {
		hi = col1
	}
	p := 0.0
	for a := lo; a <= hi; a++ {
		b := row1 - a
		c := col1 - a
		d := n - a - b - c
		if b < 0 || c < 0 || d < 0 {
			continue
		}
		p += math.Exp(logChoose(row1, a) + logChoose(c+d, c) - logChoose(n, col1))
	}
	if p > 1 {
		p = 1
	}
	return p
}

func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	lg, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return lg - lk - lnk
}

// holmBonferroni returns which of the p-values survive the step-down
// multiple-testing correction at level alpha.
func holmBonferroni(pvalues []float64, alpha float64) []bool {
	m := len(pvalues)
	keep := make([]bool, m)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return pvalues[order[i]] < pvalues[order[j]] })
	for rank, idx := range order {
		if pvalues[idx] > alpha/float64(m-rank) {
			break
		}
		keep[idx] = true
	}
	return keep
}

// zOutliers flags values more than cutoff standard deviations from the mean.
func zOutliers(values []float64, cutoff float64) []bool {
	out := make([]bool, len(values))
	if len(values) < 2 {
		return out
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	sd := math.Sqrt(variance)
	if sd == 0 {
		return out
	}
	for i, v := range values {
		if math.Abs(v-mean)/sd > cutoff {
			out[i] = true
		}
	}
	return out
}
