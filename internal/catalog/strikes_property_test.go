package catalog

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: For any sorted strike ladder, spot, and width, the selected
// window is a contiguous slice of the ladder, holds at most 2·width+1
// strikes, and contains the strike nearest to spot.
func TestProperty_StrikeWindowShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("window is a bounded contiguous slice around ATM", prop.ForAll(
		func(count int, base, step, spotOffset float64, width int) bool {
			strikes := make([]float64, count)
			for i := range strikes {
				strikes[i] = base + float64(i)*step
			}
			spot := base + spotOffset*float64(count)*step

			window := Window(strikes, spot, width)

			if len(window) == 0 || len(window) > 2*width+1 {
				t.Logf("window size %d out of bounds for width %d", len(window), width)
				return false
			}
			if !sort.Float64sAreSorted(window) {
				return false
			}

			// Contiguity: consecutive window strikes are adjacent in the ladder.
			start := sort.SearchFloat64s(strikes, window[0])
			for i, s := range window {
				if strikes[start+i] != s {
					t.Logf("window not contiguous at %d", i)
					return false
				}
			}

			// The nearest strike to spot must be inside the window.
			atm := strikes[ATMIndex(strikes, spot)]
			for _, s := range window {
				if s == atm {
					return true
				}
			}
			t.Logf("ATM strike %v missing from window %v (spot %v)", atm, window, spot)
			return false
		},
		gen.IntRange(1, 40),
		gen.Float64Range(100.0, 50000.0),
		gen.Float64Range(25.0, 500.0),
		gen.Float64Range(-0.5, 1.5),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}

// Property: The ATM index always minimizes the absolute distance to spot,
// and ties break to the lower strike.
func TestProperty_ATMIndexMinimizesDistance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("no strike is strictly closer than the ATM pick", prop.ForAll(
		func(count int, base, step, spotOffset float64) bool {
			strikes := make([]float64, count)
			for i := range strikes {
				strikes[i] = base + float64(i)*step
			}
			spot := base + spotOffset*float64(count)*step

			i := ATMIndex(strikes, spot)
			best := math.Abs(strikes[i] - spot)
			for j, s := range strikes {
				d := math.Abs(s - spot)
				if d < best {
					return false
				}
				if d == best && j < i {
					t.Logf("tie should break to the lower strike: %d vs %d", j, i)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 40),
		gen.Float64Range(100.0, 50000.0),
		gen.Float64Range(25.0, 500.0),
		gen.Float64Range(-0.5, 1.5),
	))

	properties.TestingRun(t)
}

func TestWindowTruncatesAtBoundaries(t *testing.T) {
	strikes := []float64{24800, 24900, 25000, 25100, 25200}

	tests := []struct {
		name  string
		spot  float64
		width int
		want  []float64
	}{
		{"centered", 25000, 1, []float64{24900, 25000, 25100}},
		{"left edge", 24800, 2, []float64{24800, 24900, 25000}},
		{"right edge", 25200, 2, []float64{25000, 25100, 25200}},
		{"width zero", 25050, 0, []float64{25000}},
		{"wider than ladder", 25000, 10, strikes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Window(strikes, tt.spot, tt.width)
			if len(got) != len(tt.want) {
				t.Fatalf("Window() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Window() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
