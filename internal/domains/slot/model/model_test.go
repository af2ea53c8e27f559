package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"unibook/internal/domains/slot/model"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 10, hour, minute, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		s1   time.Time
		e1   time.Time
		s2   time.Time
		e2   time.Time
		want bool
	}{
		{
			name: "identical ranges overlap",
			s1:   at(10, 0), e1: at(11, 0),
			s2: at(10, 0), e2: at(11, 0),
			want: true,
		},
		{
			name: "partial overlap",
			s1:   at(10, 0), e1: at(11, 0),
			s2: at(10, 30), e2: at(11, 30),
			want: true,
		},
		{
			name: "containment overlaps",
			s1:   at(9, 0), e1: at(12, 0),
			s2: at(10, 0), e2: at(11, 0),
			want: true,
		},
		{
			name: "adjacent ranges do not overlap",
			s1:   at(9, 0), e1: at(10, 0),
			s2: at(10, 0), e2: at(11, 0),
			want: false,
		},
		{
			name: "disjoint ranges do not overlap",
			s1:   at(9, 0), e1: at(10, 0),
			s2: at(14, 0), e2: at(15, 0),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.Overlaps(tt.s1, tt.e1, tt.s2, tt.e2))
			assert.Equal(t, tt.want, model.Overlaps(tt.s2, tt.e2, tt.s1, tt.e1), "overlap must be symmetric")
		})
	}
}

func TestSlotOverlapsWith(t *testing.T) {
	a := model.Slot{StartAt: at(10, 0), EndAt: at(11, 0)}
	b := model.Slot{StartAt: at(10, 30), EndAt: at(11, 30)}
	c := model.Slot{StartAt: at(11, 0), EndAt: at(12, 0)}

	assert.True(t, a.OverlapsWith(b))
	assert.False(t, a.OverlapsWith(c))
}
