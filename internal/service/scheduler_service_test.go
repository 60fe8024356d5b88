package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "08:00", want: "0 0 8 * * *"},
		{input: "23:59", want: "0 59 23 * * *"},
		{input: "0:5", want: "0 5 0 * * *"},
		{input: "24:00", wantErr: true},
		{input: "08:60", wantErr: true},
		{input: "eight", wantErr: true},
		{input: "08", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			spec, err := buildDailySpec(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec)
		})
	}
}

func TestScheduleIntervalRejectsNonPositive(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	_, err := s.ScheduleInterval(0, func() {})
	assert.Error(t, err)
}
