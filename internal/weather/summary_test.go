package weather

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestConditionFromCode(t *testing.T) {
	cases := map[int]Condition{
		200: ConditionThunder,
		299: ConditionThunder,
		300: ConditionRainy,
		500: ConditionRainy,
		599: ConditionRainy,
		600: ConditionSnow,
		701: ConditionCloudy,
		800: ConditionSunny,
		801: ConditionCloudy,
		899: ConditionCloudy,
		900: ConditionCloudy,
		0:   ConditionCloudy,
		-1:  ConditionCloudy,
	}
	for code, want := range cases {
		if got := ConditionFromCode(code); got != want {
			t.Fatalf("ConditionFromCode(%d) = %s, want %s", code, got, want)
		}
	}
}

func threeHourly(day time.Time, code int, pop float64, temps []float64) []ForecastSample {
	out := make([]ForecastSample, 0, len(temps))
	for i, temp := range temps {
		out = append(out, ForecastSample{
			Time:          day.Add(time.Duration(i*3) * time.Hour),
			Pop:           pop,
			Temp:          temp,
			ConditionCode: code,
		})
	}
	return out
}

func TestSummarizeTodayAllRain(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, loc)
	samples := threeHourly(day, 500, 1.0, []float64{18.2, 17.6, 19.4, 22.5, 24.4, 23.1, 21.0, 19.9})
	current := CurrentReading{ConditionCode: 500, Temp: 20, TempMin: 16.4, TempMax: 21}

	got := SummarizeToday(current, samples, loc)

	if got.Precipitation != [4]int{100, 100, 100, 100} {
		t.Fatalf("precipitation = %v, want all 100", got.Precipitation)
	}
	if got.TempMax != 24 {
		t.Fatalf("tempMax = %d, want 24", got.TempMax)
	}
	// Current min 16.4 is lower than every sample and must participate.
	if got.TempMin != 16 {
		t.Fatalf("tempMin = %d, want 16", got.TempMin)
	}
	if got.Condition != ConditionRainy || got.ConditionCode != 500 {
		t.Fatalf("condition = %s/%d, want rainy/500", got.Condition, got.ConditionCode)
	}
	if !reflect.DeepEqual(got.Hourly, []Condition{ConditionRainy, ConditionRainy, ConditionRainy}) {
		t.Fatalf("hourly = %v", got.Hourly)
	}
}

func TestSummarizeTodayHeadlineIsCurrentCondition(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := threeHourly(day, 500, 0.2, []float64{10, 11, 12})

	got := SummarizeToday(CurrentReading{ConditionCode: 800, TempMin: 10, TempMax: 12}, samples, time.UTC)
	if got.Condition != ConditionSunny {
		t.Fatalf("condition = %s, want sunny", got.Condition)
	}
}

func TestPrecipitationByPeriod(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := []ForecastSample{
		{Time: day.Add(3 * time.Hour), Pop: 0.1},   // night
		{Time: day.Add(6 * time.Hour), Pop: 0.35},  // morning
		{Time: day.Add(9 * time.Hour), Pop: 0.62},  // morning
		{Time: day.Add(15 * time.Hour), Pop: 0.2},  // midday
		{Time: day.Add(21 * time.Hour), Pop: 0.05}, // evening
	}

	got := PrecipitationByPeriod(samples, time.UTC)
	want := [4]int{62, 20, 5, 10}
	if got != want {
		t.Fatalf("precipitation = %v, want %v", got, want)
	}
}

func TestPrecipitationByPeriodEmptyBuckets(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	got := PrecipitationByPeriod([]ForecastSample{{Time: day.Add(18 * time.Hour), Pop: 0.4}}, time.UTC)
	if got != [4]int{0, 0, 40, 0} {
		t.Fatalf("precipitation = %v", got)
	}
}

func TestPrecipitationUsesLocalHours(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 00:00 UTC is 09:00 in Tokyo, so the sample lands in the morning.
	sample := ForecastSample{Time: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), Pop: 0.5}

	got := PrecipitationByPeriod([]ForecastSample{sample}, tokyo)
	if got[PeriodMorning] != 50 {
		t.Fatalf("precipitation = %v, want morning 50", got)
	}
}

func TestSummarizeTomorrowMostFrequent(t *testing.T) {
	day := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	samples := []ForecastSample{
		{Time: day.Add(3 * time.Hour), Temp: 14.6, ConditionCode: 800},
		{Time: day.Add(6 * time.Hour), Temp: 19.5, ConditionCode: 800},
		{Time: day.Add(9 * time.Hour), Temp: 22.4, ConditionCode: 801},
	}

	got, err := SummarizeTomorrow(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Condition != ConditionSunny || got.ConditionCode != 800 {
		t.Fatalf("condition = %s/%d, want sunny/800", got.Condition, got.ConditionCode)
	}
	if got.TempMax != 22 || got.TempMin != 15 {
		t.Fatalf("temps = %d/%d, want 22/15", got.TempMax, got.TempMin)
	}
}

func TestSummarizeTomorrowNoSamples(t *testing.T) {
	if _, err := SummarizeTomorrow(nil); !errors.Is(err, ErrNoForecast) {
		t.Fatalf("expected ErrNoForecast, got %v", err)
	}
}

func TestMostFrequentCodeTieGoesToFirst(t *testing.T) {
	if got := MostFrequentCode([]int{500, 800, 800, 500}); got != 500 {
		t.Fatalf("got %d, want 500", got)
	}
	if got := MostFrequentCode([]int{801, 500, 500}); got != 500 {
		t.Fatalf("got %d, want 500", got)
	}
}

func TestHourlyConditionsFallbacks(t *testing.T) {
	if got := HourlyConditions(nil, time.UTC); !reflect.DeepEqual(got, []Condition{ConditionCloudy, ConditionCloudy, ConditionCloudy}) {
		t.Fatalf("empty samples: got %v", got)
	}

	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := []ForecastSample{
		{Time: day.Add(21 * time.Hour), ConditionCode: 600},
	}
	// Only 18:00 has a sample within three hours; the others use the first sample.
	got := HourlyConditions(samples, time.UTC)
	if !reflect.DeepEqual(got, []Condition{ConditionSnow, ConditionSnow, ConditionSnow}) {
		t.Fatalf("got %v", got)
	}
}

func TestDayWindowAndSamplesBetween(t *testing.T) {
	now := time.Date(2026, 6, 1, 13, 30, 0, 0, time.UTC)
	start, end := DayWindow(now, time.UTC, 1)
	if !start.Equal(time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window = [%v, %v)", start, end)
	}

	samples := []ForecastSample{
		{Time: time.Date(2026, 6, 1, 21, 0, 0, 0, time.UTC)},
		{Time: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)},
		{Time: time.Date(2026, 6, 2, 21, 0, 0, 0, time.UTC)},
		{Time: time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)},
	}
	got := SamplesBetween(samples, start, end)
	if len(got) != 2 {
		t.Fatalf("got %d samples, want 2", len(got))
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[float64]int{2.5: 3, -2.5: -2, 2.49: 2, -0.4: 0}
	for in, want := range cases {
		if got := round(in); got != want {
			t.Fatalf("round(%v) = %d, want %d", in, got, want)
		}
	}
}
