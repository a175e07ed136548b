package model

import (
	"testing"
	"time"
)

func TestSeriesValid(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bar := func(offset time.Duration, close float64) Bar {
		return Bar{TS: base.Add(offset), Close: close}
	}

	tests := []struct {
		name   string
		series Series
		want   bool
	}{
		{"empty", Series{}, true},
		{"increasing", Series{bar(0, 1), bar(time.Hour, 2)}, true},
		{"equal timestamps", Series{bar(0, 1), bar(0, 2)}, false},
		{"out of order", Series{bar(time.Hour, 1), bar(0, 2)}, false},
		{"negative close", Series{bar(0, -1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.series.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
