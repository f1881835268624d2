package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"WalletSentinel/internal/calculator"
	"WalletSentinel/internal/model"
)

const secondsPerDay = 86400

// Timing summarizes when a wallet trades.
type Timing struct {
	TotalPositions   int
	HourDistribution map[int]int
	PeakHours        []int
	OffHoursPct      float64
	DayDistribution  map[string]int
	WeekendPct       float64
	AvgDaysBetween   float64
	BurstEpisodes    int
	ActiveDays       int
	TotalSpanDays    int
	DailyConsistency float64
	Signals          []string
}

// AnalyzeTiming buckets positions by UTC hour and weekday.
func AnalyzeTiming(positions []model.Position) *Timing {
	r := &Timing{
		TotalPositions:   len(positions),
		HourDistribution: map[int]int{},
		DayDistribution:  map[string]int{},
	}

	var stamps []int64
	for _, p := range positions {
		if p.Timestamp > 0 {
			stamps = append(stamps, p.Timestamp)
		}
	}
	if len(stamps) < minSamples {
		return r
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	type hourBucket struct {
		day  string
		hour int
	}
	buckets := map[hourBucket]int{}
	days := map[string]bool{}
	var offHours, weekend int
	for _, ts := range stamps {
		t := time.Unix(ts, 0).UTC()
		h := t.Hour()
		r.HourDistribution[h]++
		r.DayDistribution[t.Weekday().String()]++
		if h < 8 || h >= 22 {
			offHours++
		}
		if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend++
		}
		date := t.Format("2006-01-02")
		days[date] = true
		buckets[hourBucket{date, h}]++
	}

	n := len(stamps)
	r.PeakHours = peakHours(r.HourDistribution, 3)
	r.OffHoursPct = calculator.Fraction(offHours, n)
	r.WeekendPct = calculator.Fraction(weekend, n)
	r.ActiveDays = len(days)

	span := int((stamps[n-1] - stamps[0]) / secondsPerDay)
	if span < 1 {
		span = 1
	}
	r.TotalSpanDays = span
	r.DailyConsistency = calculator.Clamp01(float64(r.ActiveDays) / float64(span))

	gaps := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		gaps = append(gaps, float64(stamps[i]-stamps[i-1])/secondsPerDay)
	}
	r.AvgDaysBetween = calculator.MeanOrZero(gaps)

	for _, c := range buckets {
		if c > 5 {
			r.BurstEpisodes++
		}
	}

	switch {
	case r.DailyConsistency > 0.8:
		r.Signals = append(r.Signals, "HIGHLY_CONSISTENT: trades almost every day, suggests automated/systematic")
	case r.DailyConsistency < 0.1:
		r.Signals = append(r.Signals, "SPORADIC: very few active days, suggests event-driven or opportunistic")
	}
	if r.OffHoursPct > 0.4 {
		r.Signals = append(r.Signals, "OFF_HOURS_HEAVY: >40% trades outside business hours, bot or non-US timezone")
	}
	if r.BurstEpisodes > 10 {
		r.Signals = append(r.Signals, fmt.Sprintf("BURST_TRADER: %d episodes of rapid-fire trading", r.BurstEpisodes))
	}
	switch {
	case r.WeekendPct > 0.35:
		r.Signals = append(r.Signals, "WEEKEND_ACTIVE: significant weekend trading")
	case r.WeekendPct < 0.05 && n > 50:
		r.Signals = append(r.Signals, "WEEKDAY_ONLY: almost no weekend trades, may follow business/sports schedule")
	}
	if r.AvgDaysBetween < 0.1 && n > 100 {
		r.Signals = append(r.Signals, "HIGH_FREQUENCY: trades multiple times per day on average")
	}
	return r
}

// peakHours returns the k busiest hours, earlier hours first on ties.
func peakHours(dist map[int]int, k int) []int {
	hours := make([]int, 0, len(dist))
	for h := range dist {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if dist[hours[i]] != dist[hours[j]] {
			return dist[hours[i]] > dist[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > k {
		hours = hours[:k]
	}
	return hours
}

func (r *Timing) Name() string { return NameTiming }

func (r *Timing) SignalList() []string { return r.Signals }

// Text renders the fixed-format timing report.
func (r *Timing) Text() string {
	var b strings.Builder
	b.WriteString("=== TIMING ANALYSIS ===")
	b.WriteString(fmt.Sprintf("\nTotal positions: %d", r.TotalPositions))
	if len(r.PeakHours) > 0 {
		b.WriteString(fmt.Sprintf("\nPeak trading hours (UTC): %v", r.PeakHours))
	}
	b.WriteString("\nOff-hours trading: " + pct(r.OffHoursPct, 1))
	b.WriteString("\nWeekend trading: " + pct(r.WeekendPct, 1))
	b.WriteString(fmt.Sprintf("\nAvg days between trades: %.1f", r.AvgDaysBetween))
	b.WriteString(fmt.Sprintf("\nBurst episodes (>5 trades/hr): %d", r.BurstEpisodes))
	b.WriteString(fmt.Sprintf("\nActive days: %d/%d (%s consistency)", r.ActiveDays, r.TotalSpanDays, pct(r.DailyConsistency, 1)))
	writeSignals(&b, r.Signals)
	return b.String()
}
