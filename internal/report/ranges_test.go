package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "Excellent"},
		{90, "Excellent"},
		{89.5, "Good"},
		{75, "Good"},
		{74.9, "Fair"},
		{60, "Fair"},
		{59, "Needs Improvement"},
		{0, "Needs Improvement"},
		{-5, "Needs Improvement"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.score), "score %v", tt.score)
	}
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "N/A", FormatScore(nil, true))
	assert.Equal(t, "83/100", FormatScore(ptr(82.6), false))
	assert.Equal(t, "90/100 (Excellent)", FormatScore(ptr(89.5), true))
}

func TestOverallRating(t *testing.T) {
	assert.Equal(t, "Excellent", OverallRating(95).Rating)
	assert.Equal(t, "Good", OverallRating(75).Rating)
	assert.Equal(t, "Fair", OverallRating(60).Rating)
	assert.Equal(t, "Needs Improvement", OverallRating(59.9).Rating)
	assert.NotEmpty(t, OverallRating(10).Message)
}

func TestRangeFor_CustomRanges(t *testing.T) {
	custom := []Range{{Min: 0, Max: 49, Label: "Fail"}, {Min: 50, Max: 100, Label: "Pass"}}
	assert.Equal(t, "Pass", RangeFor(50, custom).Label)
	assert.Equal(t, "Fail", RangeFor(-1, custom).Label)
	assert.Equal(t, "Excellent", RangeFor(95, nil).Label)
}

func TestAverage(t *testing.T) {
	avg, n := Average([]*float64{ptr(80), nil, ptr(90)})
	assert.Equal(t, 85.0, avg)
	assert.Equal(t, 2, n)

	avg, n = Average(nil)
	assert.Zero(t, avg)
	assert.Zero(t, n)
}
