package indicator

import (
	"errors"
	"math"
	"sort"

	"ConfluenceTrader/internal/model"
)

// Bucket is one price bucket of a volume profile.
type Bucket struct {
	Low    float64
	High   float64
	Volume float64
}

// Mid returns the bucket's midpoint price.
func (b Bucket) Mid() float64 { return (b.Low + b.High) / 2 }

// Profile is a volume-by-price histogram with its high and low volume nodes.
type Profile struct {
	Buckets []Bucket
	HVN     []float64
	LVN     []float64
}

// TotalVolume sums all bucket volumes.
func (p *Profile) TotalVolume() float64 {
	sum := 0.0
	for _, b := range p.Buckets {
		sum += b.Volume
	}
	return sum
}

// VolumeProfile distributes the volume of the trailing lookback bars across
// fixed-size price buckets. A degenerate price range yields an empty profile.
func VolumeProfile(bars []model.Bar, lookback int, bucketSize float64) (*Profile, error) {
	if lookback <= 0 || bucketSize <= 0 {
		return nil, errors.New("lookback and bucket size must be positive")
	}
	if len(bars) < lookback {
		return nil, ErrInsufficientData
	}
	window := bars[len(bars)-lookback:]
	maxPrice, minPrice := SwingRange(window)
	if maxPrice-minPrice <= 0 {
		return &Profile{}, nil
	}

	n := int(math.Floor((maxPrice-minPrice)/bucketSize)) + 1
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Low = minPrice + float64(i)*bucketSize
		buckets[i].High = buckets[i].Low + bucketSize
	}

	for _, b := range window {
		barRange := b.High - b.Low
		if barRange <= 0 {
			buckets[bucketIndex(b.Close, minPrice, bucketSize, n)].Volume += b.Volume
			continue
		}
		first := bucketIndex(b.Low, minPrice, bucketSize, n)
		last := bucketIndex(b.High, minPrice, bucketSize, n)
		for i := first; i <= last; i++ {
			overlap := math.Min(buckets[i].High, b.High) - math.Max(buckets[i].Low, b.Low)
			if overlap > 0 {
				buckets[i].Volume += b.Volume * overlap / barRange
			}
		}
	}

	p := &Profile{Buckets: buckets}
	p.HVN, p.LVN = rankNodes(buckets)
	return p, nil
}

func bucketIndex(price, minPrice, size float64, n int) int {
	i := int(math.Floor((price - minPrice) / size))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// rankNodes returns the midpoints of the top and bottom decile of buckets that
// received volume, ranked by volume. Each decile holds at least one bucket.
func rankNodes(buckets []Bucket) (hvn, lvn []float64) {
	traded := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Volume > 0 {
			traded = append(traded, b)
		}
	}
	if len(traded) == 0 {
		return nil, nil
	}
	sort.SliceStable(traded, func(i, j int) bool { return traded[i].Volume > traded[j].Volume })

	k := len(traded) / 10
	if k < 1 {
		k = 1
	}
	for _, b := range traded[:k] {
		hvn = append(hvn, b.Mid())
	}
	for _, b := range traded[len(traded)-k:] {
		lvn = append(lvn, b.Mid())
	}
	return hvn, lvn
}
