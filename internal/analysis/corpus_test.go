package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipwatch/internal/snapshot/models"
)

func TestNewCorpus(t *testing.T) {
	x, y := key("X"), key("Y")

	t.Run("groups observations per date and sorts the axis", func(t *testing.T) {
		c, err := NewCorpus(
			[]time.Time{day("2/1/2024"), day("1/1/2024")},
			[]models.Observation{
				obs("2/1/2024", x, "In Review"),
				obs("1/1/2024", x, "Review Pending"),
				obs("1/1/2024", y, "Coordination"),
			},
		)
		require.NoError(t, err)

		assert.Equal(t, []time.Time{day("1/1/2024"), day("2/1/2024")}, c.Dates)
		first, ok := c.Snapshot(day("1/1/2024"))
		require.True(t, ok)
		assert.Equal(t, []models.EntityKey{x, y}, first.Keys())
		assert.Zero(t, c.Duplicates)
	})

	t.Run("adds dates known only from observations", func(t *testing.T) {
		c, err := NewCorpus([]time.Time{day("1/1/2024")}, []models.Observation{obs("3/1/2024", x, "In Review")})
		require.NoError(t, err)
		assert.Equal(t, []time.Time{day("1/1/2024"), day("3/1/2024")}, c.Dates)
	})

	t.Run("keeps dates with no observations as empty snapshots", func(t *testing.T) {
		c, err := NewCorpus([]time.Time{day("1/1/2024")}, nil)
		require.NoError(t, err)
		snap, ok := c.Snapshot(day("1/1/2024"))
		require.True(t, ok)
		assert.Empty(t, snap.Statuses)
	})

	t.Run("last write wins on duplicate rows", func(t *testing.T) {
		c, err := NewCorpus(nil, []models.Observation{
			obs("1/1/2024", x, "In Review"),
			obs("1/1/2024", y, "Coordination"),
			obs("1/1/2024", x, "Finalization"),
		})
		require.NoError(t, err)

		assert.Equal(t, 1, c.Duplicates)
		require.Len(t, c.Observations, 2)
		assert.Equal(t, x, c.Observations[0].Key)
		assert.Equal(t, "Finalization", c.Observations[0].RawStatus)
		snap, _ := c.Snapshot(day("1/1/2024"))
		assert.Equal(t, "Finalization", snap.Statuses[x])
	})

	t.Run("reject policy fails on duplicate rows", func(t *testing.T) {
		_, err := NewCorpus(nil, []models.Observation{
			obs("1/1/2024", x, "In Review"),
			obs("1/1/2024", x, "Finalization"),
		}, WithDuplicatePolicy(DuplicateReject))
		assert.ErrorIs(t, err, ErrDuplicateObservation)
	})

	t.Run("normalizes time of day away", func(t *testing.T) {
		withClock := models.Observation{PublishDate: day("1/1/2024").Add(15 * time.Hour), Key: x, RawStatus: "In Review"}
		c, err := NewCorpus(nil, []models.Observation{withClock}, WithNotDisplayed(map[time.Time]int{day("1/1/2024").Add(time.Hour): 4}))
		require.NoError(t, err)
		_, ok := c.Snapshot(day("1/1/2024"))
		assert.True(t, ok)
		assert.Equal(t, 4, c.NotDisplayed[day("1/1/2024")])
	})
}

func TestCorpusNavigation(t *testing.T) {
	c := mustCorpus(
		obs("1/1/2024", key("X"), "In Review"),
		obs("2/1/2024", key("X"), "In Review"),
		obs("3/1/2024", key("Y"), "In Review"),
	)

	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, day("3/1/2024"), latest)

	prev, ok := c.Predecessor(day("3/1/2024"))
	require.True(t, ok)
	assert.Equal(t, day("2/1/2024"), prev)

	_, ok = c.Predecessor(day("1/1/2024"))
	assert.False(t, ok)
	_, ok = c.Predecessor(day("5/1/2024"))
	assert.False(t, ok)

	assert.Equal(t, []models.EntityKey{key("X"), key("Y")}, c.Keys())

	_, ok = mustCorpus().Latest()
	assert.False(t, ok)
}

func TestGroupBy(t *testing.T) {
	grouped := groupBy([]string{"apple", "avocado", "banana", "apricot"}, func(s string) byte { return s[0] })
	assert.Equal(t, []string{"apple", "avocado", "apricot"}, grouped['a'])
	assert.Equal(t, []string{"banana"}, grouped['b'])
}
