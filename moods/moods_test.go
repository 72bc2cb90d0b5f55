package moods

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	require.Zero(t, empty.AverageMood)
	require.Zero(t, empty.TotalEntries)
	require.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, empty.Distribution)

	a := Summarize([]int{5, 4, 4, 1})
	require.Equal(t, 4, a.TotalEntries)
	require.InDelta(t, 3.5, a.AverageMood, 1e-9)
	require.Equal(t, map[int]int{1: 1, 2: 0, 3: 0, 4: 2, 5: 1}, a.Distribution)
}

func TestMoodInputValidate(t *testing.T) {
	for r := MinRating; r <= MaxRating; r++ {
		require.NoError(t, MoodInput{Rating: r}.Validate())
		require.NotEmpty(t, RatingLabels[r])
	}
	require.ErrorIs(t, MoodInput{Rating: 0}.Validate(), ErrInvalidRating)
	require.ErrorIs(t, MoodInput{Rating: 6}.Validate(), ErrInvalidRating)
}

func TestActivityInputValidate(t *testing.T) {
	in := ActivityInput{Name: "  Yoga ", Icon: " lotus "}
	require.NoError(t, in.Validate())
	require.Equal(t, "Yoga", in.Name)
	require.Equal(t, "lotus", in.Icon)

	require.ErrorIs(t, (&ActivityInput{Name: "  "}).Validate(), ErrInvalidName)
	require.ErrorIs(t, (&ActivityInput{Name: strings.Repeat("a", 101)}).Validate(), ErrInvalidName)
	require.NoError(t, (&ActivityInput{Name: strings.Repeat("é", 100)}).Validate())
	require.ErrorIs(t, (&ActivityInput{Name: "x", Icon: strings.Repeat("i", 51)}).Validate(), ErrInvalidIcon)
}
