package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pctPtr(v float64) *float64 { return &v }

func TestSummarize(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Group: "Residential", Change: 100, PercentChange: pctPtr(10)},
		{Group: "Residential", Change: -50, PercentChange: pctPtr(-5)},
		{Group: "Residential", Change: 250, PercentChange: pctPtr(25)},
		{Group: "Commercial", Change: -400, PercentChange: pctPtr(-20)},
		{Group: "Commercial", Change: 0, PercentChange: nil},
	}

	stats, err := Summarize(rows)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Lexical order: Commercial first.
	com := stats[0]
	assert.Equal(t, "Commercial", com.Group)
	assert.Equal(t, 2, com.Count)
	assert.InDelta(t, -200, com.MeanChange, 1e-9)
	assert.InDelta(t, -200, com.MedianChange, 1e-9)
	require.NotNil(t, com.MeanPercentChange)
	assert.InDelta(t, -20, *com.MeanPercentChange, 1e-9, "undefined percent rows excluded from the mean")
	assert.Zero(t, com.ShareIncreased)

	res := stats[1]
	assert.Equal(t, "Residential", res.Group)
	assert.Equal(t, 3, res.Count)
	assert.InDelta(t, 100, res.MeanChange, 1e-9)
	assert.InDelta(t, 100, res.MedianChange, 1e-9)
	require.NotNil(t, res.MeanPercentChange)
	assert.InDelta(t, 10, *res.MeanPercentChange, 1e-9)
	assert.InDelta(t, 2.0/3.0, res.ShareIncreased, 1e-9)
}

func TestSummarizeAllPercentsUndefined(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{Group: "Exempt", Change: 0},
		{Group: "Exempt", Change: 0},
	}
	stats, err := Summarize(rows)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Nil(t, stats[0].MeanPercentChange)
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()
	_, err := Summarize(nil)
	assert.Error(t, err)
}

func TestSummarizeByQuintile(t *testing.T) {
	t.Parallel()

	// Ten parcels with incomes 10k..100k; change equals income/1000 so each
	// bin's mean is easy to check. One parcel has no demographic match and
	// must be excluded without failing the cut.
	var values []*float64
	var rows []Row
	for i := 1; i <= 10; i++ {
		income := float64(i) * 10000
		values = append(values, &income)
		rows = append(rows, Row{Change: income / 1000})
	}
	values = append(values, nil)
	rows = append(rows, Row{Change: 99999})

	stats, err := SummarizeByQuintile(values, rows)
	require.NoError(t, err)
	require.Len(t, stats, 5)

	assert.Equal(t, "Q1", stats[0].Group)
	assert.Equal(t, 2, stats[0].Count)
	assert.InDelta(t, 15, stats[0].MeanChange, 1e-9) // incomes 10k, 20k
	assert.Equal(t, "Q5", stats[4].Group)
	assert.InDelta(t, 95, stats[4].MeanChange, 1e-9) // incomes 90k, 100k
}

func TestSummarizeByQuintileInsufficientVariation(t *testing.T) {
	t.Parallel()

	v := 42.0
	values := []*float64{&v, &v, &v, &v, &v, &v}
	rows := make([]Row, 6)

	_, err := SummarizeByQuintile(values, rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientVariation)
}

func TestSummarizeByQuintileLengthMismatch(t *testing.T) {
	t.Parallel()
	_, err := SummarizeByQuintile([]*float64{nil}, nil)
	assert.Error(t, err)
}
