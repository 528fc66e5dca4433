package services

import (
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestToday(t *testing.T) {
	bogota := time.FixedZone("COT", -5*60*60)
	tokyo := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name string
		now  time.Time
		want core.Date
	}{
		{"utc", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), core.NewDate(2024, 3, 15)},
		{"west of utc late evening", time.Date(2024, 3, 15, 21, 30, 0, 0, bogota), core.NewDate(2024, 3, 16)},
		{"east of utc early morning", time.Date(2024, 3, 16, 7, 0, 0, 0, tokyo), core.NewDate(2024, 3, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Today(fixedClock{now: tt.now})
			if !got.Equal(tt.want.Time) {
				t.Errorf("Today() = %s, want %s", got, tt.want)
			}
		})
	}
}
