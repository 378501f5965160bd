package dashboard

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// Random is the subset of *rand.Rand used by the demo generators.
type Random interface {
	IntN(n int) int
	Float64() float64
}

// NewSeededRandom returns a deterministic source for tests and --seed runs.
func NewSeededRandom(seed uint64) Random {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// DemoGenerator produces synthetic dashboard data. Output is not reproducible
// unless a seeded Random is supplied.
type DemoGenerator struct {
	mu  sync.Mutex
	rnd Random
}

// NewDemoGenerator wraps the given source; nil uses a time-seeded PCG.
func NewDemoGenerator(rnd Random) *DemoGenerator {
	if rnd == nil {
		now := uint64(time.Now().UnixNano())
		rnd = NewSeededRandom(now)
	}
	return &DemoGenerator{rnd: rnd}
}

func (g *DemoGenerator) intN(n int) int {
	if n <= 0 {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.IntN(n)
}

func (g *DemoGenerator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

// CallRangeRule assigns floor(rand*Width)+Base calls to hours in
// [FromHour, ToHour] for weekdays or weekends.
type CallRangeRule struct {
	Weekend  bool
	FromHour int
	ToHour   int
	Base     int
	Width    int
}

func (r CallRangeRule) matches(weekend bool, hour int) bool {
	return r.Weekend == weekend && hour >= r.FromHour && hour <= r.ToHour
}

// DefaultCallRules shape the call heatmap: weekday business hours are busiest,
// weekend nights are nearly idle. The first matching rule wins.
var DefaultCallRules = []CallRangeRule{
	{Weekend: true, FromHour: 10, ToHour: 16, Base: 2, Width: 8},
	{Weekend: true, FromHour: 9, ToHour: 18, Base: 0, Width: 4},
	{Weekend: true, FromHour: 0, ToHour: 23, Base: 0, Width: 2},
	{FromHour: 8, ToHour: 10, Base: 15, Width: 20},
	{FromHour: 11, ToHour: 14, Base: 20, Width: 25},
	{FromHour: 15, ToHour: 17, Base: 12, Width: 18},
	{FromHour: 18, ToHour: 21, Base: 5, Width: 12},
	{FromHour: 6, ToHour: 22, Base: 0, Width: 6},
	{FromHour: 0, ToHour: 23, Base: 0, Width: 3},
}

// CallHeatmapCeiling is the fixed maximum the call heatmap normalises against.
const CallHeatmapCeiling = 45

// HourlyCalls draws a call count for the given weekday and hour.
func (g *DemoGenerator) HourlyCalls(day time.Weekday, hour int) int {
	return g.hourlyCalls(DefaultCallRules, day, hour)
}

func (g *DemoGenerator) hourlyCalls(rules []CallRangeRule, day time.Weekday, hour int) int {
	weekend := day == time.Saturday || day == time.Sunday
	for _, rule := range rules {
		if rule.matches(weekend, hour) {
			return g.intN(rule.Width) + rule.Base
		}
	}
	return 0
}

// CallGrid holds call counts per day (rows) and hour (columns).
type CallGrid struct {
	Days   []time.Time `json:"days"`
	Hours  []int       `json:"hours"`
	Values [][]int     `json:"values"`
	Max    int         `json:"max"`
	Total  int         `json:"total"`
}

// DefaultCallHours covers 06:00 through 22:00.
func DefaultCallHours() []int {
	hours := make([]int, 0, 17)
	for h := 6; h <= 22; h++ {
		hours = append(hours, h)
	}
	return hours
}

// CallHeatmap generates `days` days of hourly counts ending on `end`.
func (g *DemoGenerator) CallHeatmap(end time.Time, days int, hours []int) CallGrid {
	if days <= 0 {
		days = 30
	}
	if len(hours) == 0 {
		hours = DefaultCallHours()
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	grid := CallGrid{
		Days:   make([]time.Time, days),
		Hours:  append([]int(nil), hours...),
		Values: make([][]int, days),
		Max:    CallHeatmapCeiling,
	}
	for i := 0; i < days; i++ {
		day := end.AddDate(0, 0, i-days+1)
		grid.Days[i] = day
		row := make([]int, len(hours))
		for j, h := range hours {
			v := g.HourlyCalls(day.Weekday(), h)
			row[j] = v
			grid.Total += v
			if v > grid.Max {
				grid.Max = v
			}
		}
		grid.Values[i] = row
	}
	return grid
}

// SentimentSplit breaks a call count into sentiment classes.
type SentimentSplit struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// ActivityCell is one slot of the live activity grid.
type ActivityCell struct {
	Value     int            `json:"value"`
	Sentiment SentimentSplit `json:"sentiment"`
}

// ActivityGrid is a labelled matrix of activity cells.
type ActivityGrid struct {
	View    string           `json:"view"`
	Rows    []string         `json:"rows"`
	Columns []string         `json:"columns"`
	Cells   [][]ActivityCell `json:"cells"`
	Max     float64          `json:"max"`
}

var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func isBusinessHour(hour int) bool {
	return hour >= 8 && hour <= 17
}

// WeeklyActivity generates a 7x24 grid of call activity.
func (g *DemoGenerator) WeeklyActivity() ActivityGrid {
	grid := ActivityGrid{
		View:    "week",
		Rows:    append([]string(nil), weekdayLabels...),
		Columns: hourLabels(),
		Cells:   make([][]ActivityCell, 7),
		Max:     60,
	}
	for day := 0; day < 7; day++ {
		row := make([]ActivityCell, 24)
		for hour := 0; hour < 24; hour++ {
			base := 10
			switch {
			case day == 0 || day == 6:
				base = 5
			case isBusinessHour(hour):
				base = 40
			}
			row[hour] = g.activityCell(base + g.intN(20))
		}
		grid.Cells[day] = row
	}
	return grid
}

// DailyActivity generates a 24x12 grid of five-minute activity slots.
func (g *DemoGenerator) DailyActivity() ActivityGrid {
	cols := make([]string, 12)
	for i := range cols {
		cols[i] = fmt.Sprintf(":%02d", i*5)
	}
	grid := ActivityGrid{
		View:    "day",
		Rows:    hourLabels(),
		Columns: cols,
		Cells:   make([][]ActivityCell, 24),
		Max:     25,
	}
	for hour := 0; hour < 24; hour++ {
		row := make([]ActivityCell, 12)
		for slot := range row {
			base := 3
			if isBusinessHour(hour) {
				base = 15
			}
			row[slot] = g.activityCell(base + g.intN(10))
		}
		grid.Cells[hour] = row
	}
	return grid
}

func (g *DemoGenerator) activityCell(value int) ActivityCell {
	a := float64(value)
	return ActivityCell{
		Value: value,
		Sentiment: SentimentSplit{
			Positive: int(math.Floor(a * (0.5 + g.float()*0.3))),
			Neutral:  int(math.Floor(a * (0.2 + g.float()*0.2))),
			Negative: int(math.Floor(a * (0.1 + g.float()*0.2))),
		},
	}
}

func hourLabels() []string {
	labels := make([]string, 24)
	for h := range labels {
		labels[h] = fmt.Sprintf("%02d:00", h)
	}
	return labels
}

// CallVolumeDay is inbound/outbound volume for one weekday.
type CallVolumeDay struct {
	Day      string `json:"day"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// Total returns inbound plus outbound.
func (d CallVolumeDay) Total() int {
	return d.Inbound + d.Outbound
}

var defaultCallVolumeWeek = []CallVolumeDay{
	{Day: "Mon", Inbound: 156, Outbound: 245},
	{Day: "Tue", Inbound: 178, Outbound: 267},
	{Day: "Wed", Inbound: 192, Outbound: 289},
	{Day: "Thu", Inbound: 168, Outbound: 256},
	{Day: "Fri", Inbound: 145, Outbound: 234},
	{Day: "Sat", Inbound: 98, Outbound: 156},
	{Day: "Sun", Inbound: 87, Outbound: 123},
}

// DefaultCallVolumeWeek returns the reference weekly call volume.
func DefaultCallVolumeWeek() []CallVolumeDay {
	out := make([]CallVolumeDay, len(defaultCallVolumeWeek))
	copy(out, defaultCallVolumeWeek)
	return out
}

// CallVolumeWeek jitters the reference week by up to ±10%.
func (g *DemoGenerator) CallVolumeWeek() []CallVolumeDay {
	week := DefaultCallVolumeWeek()
	for i := range week {
		week[i].Inbound = g.jitter(week[i].Inbound, 0.1)
		week[i].Outbound = g.jitter(week[i].Outbound, 0.1)
	}
	return week
}

func (g *DemoGenerator) jitter(v int, pct float64) int {
	delta := (g.float()*2 - 1) * pct * float64(v)
	out := int(math.Round(float64(v) + delta))
	if out < 0 {
		return 0
	}
	return out
}

// FrictionPoint is the count of friction calls for a topic and time slot.
type FrictionPoint struct {
	Topic       string  `json:"topic"`
	TimeSlot    string  `json:"time_slot"`
	Count       int     `json:"count"`
	AvgDuration int     `json:"avg_duration"`
	Sentiment   float64 `json:"sentiment"`
}

// Default friction axes.
var (
	DefaultFrictionTopics = []string{"Prior Auth", "Insurance", "Side Effects", "Refills", "Dosage", "Cost"}
	DefaultFrictionSlots  = []string{"8-10am", "10-12pm", "12-2pm", "2-4pm", "4-6pm", "6-8pm"}
)

// FrictionPoints generates one point per topic and slot. Earlier topics carry
// more friction, mirroring the prior-authorisation bottleneck.
func (g *DemoGenerator) FrictionPoints(topics, slots []string) []FrictionPoint {
	if len(topics) == 0 {
		topics = DefaultFrictionTopics
	}
	if len(slots) == 0 {
		slots = DefaultFrictionSlots
	}
	out := make([]FrictionPoint, 0, len(topics)*len(slots))
	for ti, topic := range topics {
		weight := float64(len(topics)-ti) / float64(len(topics))
		for _, slot := range slots {
			count := int(math.Floor(g.float()*40*weight)) + g.intN(6)
			out = append(out, FrictionPoint{
				Topic:       topic,
				TimeSlot:    slot,
				Count:       count,
				AvgDuration: 60 + g.intN(240),
				Sentiment:   math.Round((0.15+g.float()*0.8)*100) / 100,
			})
		}
	}
	return out
}

// FrictionMax is max(count), floored at 1.
func FrictionMax(points []FrictionPoint) float64 {
	peak := 1
	for _, p := range points {
		if p.Count > peak {
			peak = p.Count
		}
	}
	return float64(peak)
}

// StateStat carries per-state access metrics.
type StateStat struct {
	Code                     string   `json:"code"`
	Name                     string   `json:"name"`
	CallVolume               int      `json:"call_volume"`
	SDOHScore                int      `json:"sdoh_score"`
	TransportationInsecurity int      `json:"transportation_insecurity"`
	HealthLiteracy           string   `json:"health_literacy"`
	InsuranceCoverage        int      `json:"insurance_coverage"`
	RuralPercentage          int      `json:"rural_percentage"`
	AvgWaitTime              int      `json:"avg_wait_time"`
	TopBarriers              []string `json:"top_barriers"`
	ActivePatients           int      `json:"active_patients"`
}

// Geographic modes.
const (
	GeoModeVolume   = "volume"
	GeoModeSDOH     = "sdoh"
	GeoModeBarriers = "barriers"
)

// Metric returns the value plotted for the given mode.
func (s StateStat) Metric(mode string) float64 {
	switch mode {
	case GeoModeSDOH:
		return float64(s.SDOHScore)
	case GeoModeBarriers:
		return float64(s.TransportationInsecurity)
	default:
		return float64(s.CallVolume)
	}
}

var stateFixture = []StateStat{
	{"CA", "California", 145, 42, 35, "medium", 92, 15, 12, []string{"Transportation", "Language Access", "Cost"}, 423},
	{"TX", "Texas", 128, 58, 45, "medium", 78, 35, 18, []string{"Insurance Coverage", "Transportation", "Rural Access"}, 389},
	{"FL", "Florida", 112, 48, 38, "medium", 82, 22, 15, []string{"Cost", "Transportation", "Wait Times"}, 356},
	{"NY", "New York", 98, 38, 28, "high", 95, 12, 10, []string{"Cost", "Wait Times"}, 312},
	{"PA", "Pennsylvania", 87, 52, 42, "medium", 88, 28, 14, []string{"Transportation", "Rural Access", "Cost"}, 267},
	{"IL", "Illinois", 76, 45, 36, "medium", 90, 18, 13, []string{"Cost", "Transportation"}, 234},
	{"OH", "Ohio", 72, 54, 48, "medium", 86, 32, 16, []string{"Transportation", "Rural Access", "Health Literacy"}, 223},
	{"GA", "Georgia", 68, 62, 52, "low", 75, 38, 20, []string{"Insurance Coverage", "Transportation", "Health Literacy"}, 198},
	{"NC", "North Carolina", 64, 56, 46, "medium", 82, 34, 17, []string{"Rural Access", "Transportation", "Cost"}, 189},
	{"MI", "Michigan", 61, 50, 40, "medium", 89, 25, 14, []string{"Transportation", "Cost"}, 176},
	{"AZ", "Arizona", 55, 60, 50, "low", 80, 42, 19, []string{"Rural Access", "Transportation", "Health Literacy"}, 167},
	{"WA", "Washington", 52, 36, 30, "high", 94, 20, 11, []string{"Cost", "Rural Access"}, 158},
}

// StateActivity returns the state fixture.
func StateActivity() []StateStat {
	out := make([]StateStat, len(stateFixture))
	for i, s := range stateFixture {
		s.TopBarriers = append([]string(nil), s.TopBarriers...)
		out[i] = s
	}
	return out
}

// HighRiskSDOH marks states whose SDOH score signals elevated access risk.
const HighRiskSDOH = 55

// LeaderboardEntry ranks an agent or campaign.
type LeaderboardEntry struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Metric string  `json:"metric"`
	Change float64 `json:"change"`
	Rank   int     `json:"rank"`
	Medal  string  `json:"medal,omitempty"`
}

// DefaultLeaderboardNames are the demo voice agents.
var DefaultLeaderboardNames = []string{
	"Refill Reminder Agent",
	"Prior Auth Assistant",
	"Adherence Coach",
	"Onboarding Guide",
	"Side Effect Triage",
	"Copay Navigator",
	"Dosage Helper",
	"Appointment Scheduler",
	"Benefits Checker",
	"Follow-up Caller",
	"Pharmacy Locator",
	"Survey Agent",
}

// MaxLeaderboardEntries caps the leaderboard length.
const MaxLeaderboardEntries = 10

var medals = map[int]string{1: "gold", 2: "silver", 3: "bronze"}

// Leaderboard scores the named entries and returns the top n ranked by score.
func (g *DemoGenerator) Leaderboard(names []string, metric string, n int) []LeaderboardEntry {
	if len(names) == 0 {
		names = DefaultLeaderboardNames
	}
	if n <= 0 || n > MaxLeaderboardEntries {
		n = MaxLeaderboardEntries
	}
	if metric == "" {
		metric = "conversion"
	}
	entries := make([]LeaderboardEntry, len(names))
	for i, name := range names {
		entries[i] = LeaderboardEntry{
			ID:     fmt.Sprintf("agent-%d", i+1),
			Name:   name,
			Score:  math.Round((50+g.float()*50)*10) / 10,
			Metric: metric,
			Change: math.Round((g.float()*30-10)*10) / 10,
		}
	}
	return RankLeaderboard(entries, n)
}

// RankLeaderboard sorts by score descending, assigns ranks and medals, and
// truncates to n entries.
func RankLeaderboard(entries []LeaderboardEntry, n int) []LeaderboardEntry {
	out := append([]LeaderboardEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Rank = i + 1
		out[i].Medal = medals[i+1]
	}
	return out
}

// Sentiment classes for GeneratorSettings.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// GeneratorSettings tune the live data generator.
type GeneratorSettings struct {
	CallVolume       int     `json:"call_volume" koanf:"call_volume"`
	Positive         float64 `json:"positive" koanf:"positive"`
	Neutral          float64 `json:"neutral" koanf:"neutral"`
	Negative         float64 `json:"negative" koanf:"negative"`
	ConversionRate   float64 `json:"conversion_rate" koanf:"conversion_rate"`
	AverageDuration  float64 `json:"average_duration" koanf:"average_duration"`
	TimeAcceleration float64 `json:"time_acceleration" koanf:"time_acceleration"`
}

// DefaultGeneratorSettings mirrors the demo control panel defaults.
func DefaultGeneratorSettings() GeneratorSettings {
	return GeneratorSettings{
		CallVolume:       50,
		Positive:         60,
		Neutral:          30,
		Negative:         10,
		ConversionRate:   35,
		AverageDuration:  8,
		TimeAcceleration: 1,
	}
}

// SetSentiment pins one sentiment share and rebalances the other two
// proportionally so the three still sum to 100.
func (s *GeneratorSettings) SetSentiment(kind string, pct float64) error {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return fmt.Errorf("dashboard: sentiment %q percentage must be finite, got %v", kind, pct)
	}
	pct = math.Max(0, math.Min(100, pct))
	remaining := 100 - pct
	switch kind {
	case SentimentPositive:
		s.Positive = pct
		s.Neutral, s.Negative = splitRemaining(s.Neutral, s.Negative, remaining)
	case SentimentNeutral:
		s.Neutral = pct
		s.Positive, s.Negative = splitRemaining(s.Positive, s.Negative, remaining)
	case SentimentNegative:
		s.Negative = pct
		s.Positive, s.Neutral = splitRemaining(s.Positive, s.Neutral, remaining)
	default:
		return fmt.Errorf("dashboard: unknown sentiment %q", kind)
	}
	return nil
}

func splitRemaining(a, b, remaining float64) (float64, float64) {
	total := a + b
	if total <= 0 {
		return remaining / 2, remaining / 2
	}
	na := math.Round(a/total*remaining*100) / 100
	return na, remaining - na
}

// SentimentTotal returns positive+neutral+negative.
func (s GeneratorSettings) SentimentTotal() float64 {
	return s.Positive + s.Neutral + s.Negative
}

// CallSample is one synthetic call produced from GeneratorSettings.
type CallSample struct {
	At        time.Time `json:"at"`
	Sentiment string    `json:"sentiment"`
	Duration  float64   `json:"duration_minutes"`
	Converted bool      `json:"converted"`
}

// SampleCalls draws calls for one simulated hour starting at `from`.
func (g *DemoGenerator) SampleCalls(settings GeneratorSettings, from time.Time) []CallSample {
	n := settings.CallVolume
	if n <= 0 {
		return nil
	}
	accel := settings.TimeAcceleration
	if accel <= 0 {
		accel = 1
	}
	step := time.Duration(float64(time.Hour) / accel / float64(n))
	out := make([]CallSample, n)
	for i := range out {
		out[i] = CallSample{
			At:        from.Add(time.Duration(i) * step),
			Sentiment: g.pickSentiment(settings),
			Duration:  math.Round(settings.AverageDuration*(0.5+g.float())*10) / 10,
			Converted: g.float()*100 < settings.ConversionRate,
		}
	}
	return out
}

func (g *DemoGenerator) pickSentiment(s GeneratorSettings) string {
	total := s.SentimentTotal()
	if total <= 0 {
		return SentimentNeutral
	}
	r := g.float() * total
	switch {
	case r < s.Positive:
		return SentimentPositive
	case r < s.Positive+s.Neutral:
		return SentimentNeutral
	default:
		return SentimentNegative
	}
}
