package binning

// DefaultBucketCount is the number of equal-width buckets used when none is given.
const DefaultBucketCount = 20

// DefaultOverlayPoints is the number of samples on the normal density curve.
const DefaultOverlayPoints = 50

// Bin is one equal-width histogram bucket.
//
// Bins are contiguous: LowerBound of bin i equals UpperBound of bin i-1.
// Every bin except the first is half-open (LowerBound, UpperBound]; the first
// bin also includes its LowerBound so the sample minimum is counted.
type Bin struct {
	Index       int     `json:"index"`
	LowerBound  float64 `json:"lower_bound"`
	UpperBound  float64 `json:"upper_bound"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
}

// Width returns the bin's upper minus lower bound.
func (b Bin) Width() float64 {
	return b.UpperBound - b.LowerBound
}

// Point is an (x, y) coordinate on the overlay curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Summary holds descriptive statistics of the binned sample.
type Summary struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
}

// Overlay is a normal distribution fitted to the sample's mean and
// standard deviation, expressed on the same scale as bin probabilities.
type Overlay struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`

	// Expected holds the probability mass the normal distribution assigns
	// to each bin, index-aligned with Histogram.Bins. Mass in the tails
	// beyond the sample range is not included, so the sum is below 1.
	Expected []float64 `json:"expected"`

	// Curve samples the density across [Min, Max], scaled by the bin width.
	Curve []Point `json:"curve"`
}

// Histogram is the full binning result for one sample.
type Histogram struct {
	Bins    []Bin    `json:"bins"`
	Summary Summary  `json:"summary"`
	Overlay *Overlay `json:"overlay,omitempty"`
}
