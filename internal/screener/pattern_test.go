package screener

import (
	"math"
	"testing"

	"options-screener/internal/models"
)

func bar(open, close float64, volume int64) models.Candle {
	return models.Candle{Open: open, High: math.Max(open, close), Low: math.Min(open, close), Close: close, Volume: volume}
}

func TestClassifyCandles(t *testing.T) {
	tests := []struct {
		name    string
		candles []models.Candle
		isPut   bool
		want    models.PatternResult
	}{
		{
			name:    "empty series",
			candles: nil,
			isPut:   true,
			want:    models.PatternNoMatch,
		},
		{
			name: "latest bar not the volume spike",
			candles: []models.Candle{
				bar(10, 9, 100),
				bar(9, 12, 50),
			},
			isPut: true,
			want:  models.PatternNoMatch,
		},
		{
			name: "put with green spike bar",
			candles: []models.Candle{
				bar(10, 10.5, 50),
				bar(10, 12, 120),
			},
			isPut: true,
			want:  models.PatternMatch,
		},
		{
			name: "put with red spike bar",
			candles: []models.Candle{
				bar(10, 10.5, 50),
				bar(12, 10, 120),
			},
			isPut: true,
			want:  models.PatternNoMatch,
		},
		{
			name: "call with red spike bar",
			candles: []models.Candle{
				bar(10, 10.5, 50),
				bar(12, 10, 120),
			},
			isPut: false,
			want:  models.PatternMatch,
		},
		{
			name: "call with green spike bar",
			candles: []models.Candle{
				bar(10, 10.5, 50),
				bar(10, 12, 120),
			},
			isPut: false,
			want:  models.PatternNoMatch,
		},
		{
			name: "doji spike bar matches neither side",
			candles: []models.Candle{
				bar(10, 10.5, 50),
				bar(11, 11, 120),
			},
			isPut: true,
			want:  models.PatternNoMatch,
		},
		{
			name: "single green bar is its own spike",
			candles: []models.Candle{
				bar(10, 11, 80),
			},
			isPut: true,
			want:  models.PatternMatch,
		},
		{
			name: "equal-volume tie counts as spike",
			candles: []models.Candle{
				bar(10, 9, 100),
				bar(9, 11, 100),
			},
			isPut: true,
			want:  models.PatternMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyCandles(tt.candles, tt.isPut); got != tt.want {
				t.Errorf("ClassifyCandles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeRatio(t *testing.T) {
	t.Run("latest over session mean", func(t *testing.T) {
		candles := []models.Candle{
			bar(10, 11, 100),
			bar(11, 12, 200),
			bar(12, 11, 300),
		}
		got, ok := VolumeRatio(candles)
		if !ok {
			t.Fatal("expected a ratio")
		}
		if math.Abs(got-1.5) > 1e-9 {
			t.Errorf("VolumeRatio() = %v, want 1.5", got)
		}
	})

	t.Run("empty series", func(t *testing.T) {
		if _, ok := VolumeRatio(nil); ok {
			t.Error("expected no ratio for empty series")
		}
	})

	t.Run("zero total volume", func(t *testing.T) {
		if _, ok := VolumeRatio([]models.Candle{bar(10, 11, 0)}); ok {
			t.Error("expected no ratio when the session traded nothing")
		}
	})
}

func TestPatternMark(t *testing.T) {
	if models.PatternMatch.Mark() != "✅" || models.PatternNoMatch.Mark() != "❌" {
		t.Error("marks must match the ledger rendering")
	}
}
