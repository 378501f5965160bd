package dashboard

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRandom always returns the top of the requested range and a constant
// float, so generated values hit their documented ceilings.
type fixedRandom struct{ f float64 }

func (fixedRandom) IntN(n int) int     { return n - 1 }
func (r fixedRandom) Float64() float64 { return r.f }

func TestHourlyCallsRanges(t *testing.T) {
	gen := NewDemoGenerator(NewSeededRandom(7))
	monday, saturday := time.Monday, time.Saturday
	for i := 0; i < 200; i++ {
		peak := gen.HourlyCalls(monday, 12)
		assert.GreaterOrEqual(t, peak, 20)
		assert.Less(t, peak, 45)

		night := gen.HourlyCalls(saturday, 2)
		assert.GreaterOrEqual(t, night, 0)
		assert.Less(t, night, 2)
	}
}

func TestHourlyCallsFirstRuleWins(t *testing.T) {
	gen := NewDemoGenerator(fixedRandom{})
	assert.Equal(t, 9, gen.HourlyCalls(time.Sunday, 12))
	assert.Equal(t, 3, gen.HourlyCalls(time.Sunday, 18))
	assert.Equal(t, 34, gen.HourlyCalls(time.Tuesday, 9))
	assert.Equal(t, 2, gen.HourlyCalls(time.Tuesday, 3))
	assert.Zero(t, gen.hourlyCalls(nil, time.Tuesday, 3))
}

func TestCallHeatmapShape(t *testing.T) {
	gen := NewDemoGenerator(NewSeededRandom(1))
	end := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	grid := gen.CallHeatmap(end, 14, nil)

	require.Len(t, grid.Days, 14)
	require.Len(t, grid.Values, 14)
	assert.Equal(t, DefaultCallHours(), grid.Hours)
	assert.Equal(t, time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC), grid.Days[0])
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), grid.Days[13])
	assert.GreaterOrEqual(t, grid.Max, CallHeatmapCeiling)

	total := 0
	for _, row := range grid.Values {
		require.Len(t, row, 17)
		for _, v := range row {
			total += v
		}
	}
	assert.Equal(t, total, grid.Total)
	assert.Len(t, gen.CallHeatmap(end, 0, []int{9}).Days, 30)
}

func TestSeededGeneratorsAreDeterministic(t *testing.T) {
	a := NewDemoGenerator(NewSeededRandom(42))
	b := NewDemoGenerator(NewSeededRandom(42))
	assert.Equal(t, a.FrictionPoints(nil, nil), b.FrictionPoints(nil, nil))
	assert.Equal(t, a.CallVolumeWeek(), b.CallVolumeWeek())
}

func TestActivityGrids(t *testing.T) {
	gen := NewDemoGenerator(NewSeededRandom(3))
	week := gen.WeeklyActivity()
	require.Len(t, week.Cells, 7)
	require.Len(t, week.Cells[0], 24)
	assert.Equal(t, "Sun", week.Rows[0])
	assert.Equal(t, "09:00", week.Columns[9])
	for day, row := range week.Cells {
		for hour, cell := range row {
			floor := 10
			if day == 0 || day == 6 {
				floor = 5
			} else if hour >= 8 && hour <= 17 {
				floor = 40
			}
			assert.GreaterOrEqual(t, cell.Value, floor)
			assert.Less(t, cell.Value, floor+20)
			split := cell.Sentiment
			assert.LessOrEqual(t, split.Positive+split.Neutral+split.Negative, cell.Value*3/2)
		}
	}

	day := gen.DailyActivity()
	require.Len(t, day.Cells, 24)
	require.Len(t, day.Cells[0], 12)
	assert.Equal(t, ":55", day.Columns[11])
}

func TestCallVolumeWeekJitter(t *testing.T) {
	gen := NewDemoGenerator(NewSeededRandom(11))
	ref := DefaultCallVolumeWeek()
	week := gen.CallVolumeWeek()
	require.Len(t, week, 7)
	for i, d := range week {
		assert.Equal(t, ref[i].Day, d.Day)
		assert.InDelta(t, ref[i].Inbound, d.Inbound, float64(ref[i].Inbound)/10+1)
		assert.InDelta(t, ref[i].Outbound, d.Outbound, float64(ref[i].Outbound)/10+1)
	}
	assert.Equal(t, 401, ref[0].Total())
}

func TestFrictionPoints(t *testing.T) {
	gen := NewDemoGenerator(fixedRandom{f: 0.5})
	points := gen.FrictionPoints([]string{"Prior Auth", "Cost"}, []string{"8-10am"})
	require.Len(t, points, 2)
	assert.Equal(t, FrictionPoint{Topic: "Prior Auth", TimeSlot: "8-10am", Count: 25, AvgDuration: 299, Sentiment: 0.55}, points[0])
	assert.Equal(t, 15, points[1].Count, "later topics carry less friction")
	assert.Equal(t, 25.0, FrictionMax(points))
	assert.Equal(t, 1.0, FrictionMax(nil))

	defaults := gen.FrictionPoints(nil, nil)
	assert.Len(t, defaults, len(DefaultFrictionTopics)*len(DefaultFrictionSlots))
}

func TestStateActivityCopies(t *testing.T) {
	states := StateActivity()
	require.Len(t, states, 12)
	states[0].TopBarriers[0] = "changed"
	assert.Equal(t, "Transportation", StateActivity()[0].TopBarriers[0])

	tx := states[1]
	assert.Equal(t, 128.0, tx.Metric(GeoModeVolume))
	assert.Equal(t, 58.0, tx.Metric(GeoModeSDOH))
	assert.Equal(t, 45.0, tx.Metric(GeoModeBarriers))
	assert.Equal(t, 128.0, tx.Metric(""))
}

func TestLeaderboardRanking(t *testing.T) {
	gen := NewDemoGenerator(NewSeededRandom(5))
	board := gen.Leaderboard(nil, "", 0)
	require.Len(t, board, MaxLeaderboardEntries)
	for i, e := range board {
		assert.Equal(t, i+1, e.Rank)
		assert.Equal(t, "conversion", e.Metric)
		assert.GreaterOrEqual(t, e.Score, 50.0)
		assert.LessOrEqual(t, e.Score, 100.0)
		if i > 0 {
			assert.GreaterOrEqual(t, board[i-1].Score, e.Score)
		}
	}
	assert.Equal(t, "gold", board[0].Medal)
	assert.Equal(t, "bronze", board[2].Medal)
	assert.Empty(t, board[3].Medal)

	ranked := RankLeaderboard([]LeaderboardEntry{{ID: "a", Score: 1}, {ID: "b", Score: 3}, {ID: "c", Score: 2}}, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].ID)
	assert.Equal(t, "silver", ranked[1].Medal)
}

func TestSetSentimentRebalances(t *testing.T) {
	s := DefaultGeneratorSettings()
	require.NoError(t, s.SetSentiment(SentimentPositive, 80))
	assert.Equal(t, 80.0, s.Positive)
	assert.Equal(t, 15.0, s.Neutral)
	assert.Equal(t, 5.0, s.Negative)
	assert.InDelta(t, 100, s.SentimentTotal(), 1e-9)

	require.NoError(t, s.SetSentiment(SentimentNegative, 150))
	assert.Equal(t, 100.0, s.Negative)
	assert.Zero(t, s.Positive+s.Neutral)

	s = GeneratorSettings{}
	require.NoError(t, s.SetSentiment(SentimentNeutral, 40))
	assert.Equal(t, 30.0, s.Positive)
	assert.Equal(t, 30.0, s.Negative)

	assert.Error(t, s.SetSentiment("angry", 10))

	before := s
	assert.ErrorContains(t, s.SetSentiment(SentimentPositive, math.NaN()), "must be finite")
	assert.Error(t, s.SetSentiment(SentimentNegative, math.Inf(1)))
	assert.Equal(t, before, s, "rejected values leave the mix untouched")
	assert.InDelta(t, 100, s.SentimentTotal(), 1e-9)
}

func TestSampleCalls(t *testing.T) {
	settings := DefaultGeneratorSettings()
	settings.CallVolume = 4
	settings.TimeAcceleration = 2
	from := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	calls := NewDemoGenerator(fixedRandom{f: 0.1}).SampleCalls(settings, from)
	require.Len(t, calls, 4)
	assert.Equal(t, from.Add(15*time.Minute), calls[2].At)
	for _, c := range calls {
		assert.Equal(t, SentimentPositive, c.Sentiment)
		assert.True(t, c.Converted)
		assert.Equal(t, 4.8, c.Duration)
	}

	settings.CallVolume = 0
	assert.Nil(t, NewDemoGenerator(nil).SampleCalls(settings, from))
}
