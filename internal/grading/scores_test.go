package grading_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		total, possible, want float64
	}{
		{4, 6, 66.67},
		{2, 3, 66.67},
		{1, 3, 33.33},
		{6, 6, 100},
		{0, 6, 0},
		{7, 6, 116.67},
		{1, 8, 12.5},
		{5, 0, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, grading.Percentage(tc.total, tc.possible), "%v/%v", tc.total, tc.possible)
	}
}

func TestIsPassed(t *testing.T) {
	four := 4.0
	assert.False(t, grading.IsPassed(100, nil))
	assert.True(t, grading.IsPassed(4, &four))
	assert.False(t, grading.IsPassed(3.99, &four))
}

func TestScoresBlob(t *testing.T) {
	s := grading.Scores{1: 1, 2: 0, 3: 0.5}
	raw, err := grading.EncodeScores(s)
	require.NoError(t, err)

	back, err := grading.DecodeScores(raw)
	require.NoError(t, err)
	assert.Equal(t, s, back)
	assert.Equal(t, 1.5, back.Total())

	empty, err := grading.DecodeScores("")
	require.NoError(t, err)
	assert.Zero(t, empty.Total())

	_, err = grading.DecodeScores("[")
	assert.Error(t, err)
}

func TestScoresTotal_Decimal(t *testing.T) {
	s := grading.Scores{}
	for i := int64(1); i <= 10; i++ {
		s[i] = 0.1
	}
	assert.Equal(t, 1.0, s.Total())
}
