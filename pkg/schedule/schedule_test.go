package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan/backend/pkg/schedule"
)

func at(h, m int) time.Time {
	return time.Date(2026, 1, 31, h, m, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		schedule schedule.Schedule
		from     time.Time
		want     time.Time
	}{
		{"interval", schedule.Every(6 * time.Hour), at(10, 0), at(16, 0)},
		{"hourly later this hour", schedule.Hourly(30), at(10, 15), at(10, 30)},
		{"hourly exactly on minute", schedule.Hourly(30), at(10, 30), at(11, 30)},
		{"daily later today", schedule.DailyAt(12, 0), at(10, 0), at(12, 0)},
		{"daily rolls over month end", schedule.DailyAt(6, 0), at(6, 0), time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.schedule.Next(tt.from))
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"every 30m", "every 30m0s", false},
		{"  Daily@06:05 ", "daily at 06:05", false},
		{"hourly@15", "hourly at :15", false},
		{"every -1h", "", true},
		{"hourly@75", "", true},
		{"daily@25:00", "", true},
		{"weekly", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			s, err := schedule.Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, schedule.ErrInvalidSchedule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.String())
		})
	}
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 24*time.Hour, schedule.Period(schedule.DailyAt(6, 0), at(10, 0)))
	assert.Equal(t, time.Hour, schedule.Period(schedule.Hourly(0), at(10, 0)))
	assert.Equal(t, 15*time.Minute, schedule.Period(schedule.Every(15*time.Minute), at(10, 0)))
}

func TestConstructorsPanic(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { schedule.Every(0) })
	assert.Panics(t, func() { schedule.Hourly(60) })
	assert.Panics(t, func() { schedule.DailyAt(24, 0) })
}
