package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipwatch/internal/snapshot/models"
	"mipwatch/internal/status"
)

func TestFindDisappearances(t *testing.T) {
	a, b, c, d, e := key("A"), key("B"), key("C"), key("D"), key("E")
	corpus := mustCorpus(
		obs("1/1/2024", a, "In Review"),
		obs("1/1/2024", b, "Coordination (12/1/2023)"),
		obs("1/1/2024", c, "Finalization"),
		obs("1/1/2024", e, "On Hold"),
		obs("2/1/2024", a, "Coordination"),
		obs("2/1/2024", d, "Review Pending"),
		obs("3/1/2024", d, "Review Pending"),
	)
	terminal := status.NewSet(status.DefaultTerminal)

	got := FindDisappearances(corpus.Observations, corpus.Dates, terminal)

	assert.Equal(t, []Disappearance{
		{Key: a, LastSeen: day("2/1/2024"), LastStatus: "Coordination"},
		{Key: b, LastSeen: day("1/1/2024"), LastStatus: "Coordination"},
		{Key: e, LastSeen: day("1/1/2024"), LastStatus: "On Hold"},
	}, got)

	t.Run("custom terminal set", func(t *testing.T) {
		got := FindDisappearances(corpus.Observations, corpus.Dates, status.NewSet("Finalization", "On Hold"))
		require.Len(t, got, 2)
		assert.Equal(t, b, got[1].Key)
	})

	t.Run("no dates", func(t *testing.T) {
		assert.Empty(t, FindDisappearances(nil, nil, terminal))
	})

	t.Run("latest date taken from the date axis", func(t *testing.T) {
		got := FindDisappearances(
			[]models.Observation{obs("1/1/2024", a, "In Review")},
			[]time.Time{day("1/1/2024"), day("2/1/2024")},
			terminal,
		)
		require.Len(t, got, 1)
	})
}

func TestFindDisappearancesRawRowsLastRowWins(t *testing.T) {
	y, other := key("Y"), key("Other")
	rows := []models.Observation{
		obs("1/1/2024", y, "In Review"),
		obs("1/1/2024", y, "Finalization"),
		obs("2/1/2024", other, "In Review"),
	}
	dates := []time.Time{day("1/1/2024"), day("2/1/2024")}
	terminal := status.NewSet(status.DefaultTerminal)

	assert.Empty(t, FindDisappearances(rows, dates, terminal))

	reversed := []models.Observation{rows[1], rows[0], rows[2]}
	assert.Equal(t, []Disappearance{
		{Key: y, LastSeen: day("1/1/2024"), LastStatus: "In Review"},
	}, FindDisappearances(reversed, dates, terminal))

	corpus := mustCorpus(rows...)
	assert.Equal(t, FindDisappearances(rows, dates, terminal),
		FindDisappearances(corpus.Observations, corpus.Dates, terminal))
}
