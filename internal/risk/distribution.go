package risk

// Range is a named R-multiple interval.
type Range string

const (
	RangeBelowMinus2 Range = "<-2R"
	RangeMinus2To1   Range = "-2R to -1R"
	RangeMinus1To0   Range = "-1R to 0R"
	Range0To1        Range = "0R to 1R"
	Range1To2        Range = "1R to 2R"
	Range2To3        Range = "2R to 3R"
	RangeAbove3      Range = ">3R"
)

// Ranges returns all seven ranges in ascending order.
func Ranges() []Range {
	return []Range{
		RangeBelowMinus2,
		RangeMinus2To1,
		RangeMinus1To0,
		Range0To1,
		Range1To2,
		Range2To3,
		RangeAbove3,
	}
}

// RangeOf places r in exactly one range. Upper bounds are inclusive, so a
// trade that made exactly 2R counts toward "1R to 2R".
func RangeOf(r float64) Range {
	switch {
	case r <= -2:
		return RangeBelowMinus2
	case r <= -1:
		return RangeMinus2To1
	case r <= 0:
		return RangeMinus1To0
	case r <= 1:
		return Range0To1
	case r <= 2:
		return Range1To2
	case r <= 3:
		return Range2To3
	default:
		return RangeAbove3
	}
}

// Bin is one bar of the R distribution.
type Bin struct {
	Range Range `json:"name"`
	Count int   `json:"value"`
}

// Distribution counts R values per range, always returning all seven bins
// in ascending order.
func Distribution(rs []float64) []Bin {
	ranges := Ranges()
	idx := make(map[Range]int, len(ranges))
	bins := make([]Bin, len(ranges))
	for i, r := range ranges {
		idx[r] = i
		bins[i].Range = r
	}
	for _, r := range rs {
		bins[idx[RangeOf(r)]].Count++
	}
	return bins
}
