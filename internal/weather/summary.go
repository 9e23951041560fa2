package weather

import (
	"fmt"
	"math"
	"time"
)

// DayWindow returns the [start, end) bounds of the calendar day in loc that
// is offset days after the day containing t.
func DayWindow(t time.Time, loc *time.Location, offset int) (time.Time, time.Time) {
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day()+offset, 0, 0, 0, 0, loc)
	end := time.Date(lt.Year(), lt.Month(), lt.Day()+offset+1, 0, 0, 0, 0, loc)
	return start, end
}

// SamplesBetween keeps samples with start <= Time < end, preserving order.
func SamplesBetween(samples []ForecastSample, start, end time.Time) []ForecastSample {
	var out []ForecastSample
	for _, s := range samples {
		if !s.Time.Before(start) && s.Time.Before(end) {
			out = append(out, s)
		}
	}
	return out
}

// SummarizeToday builds today's view from the current reading and today's
// samples. The current min/max take part in the extrema; the headline
// condition is the current one.
func SummarizeToday(current CurrentReading, samples []ForecastSample, loc *time.Location) DailyWeather {
	maxT := current.TempMax
	minT := current.TempMin
	for _, s := range samples {
		maxT = math.Max(maxT, s.Temp)
		minT = math.Min(minT, s.Temp)
	}

	return DailyWeather{
		Condition:     ConditionFromCode(current.ConditionCode),
		ConditionCode: current.ConditionCode,
		TempMax:       round(maxT),
		TempMin:       round(minT),
		Precipitation: PrecipitationByPeriod(samples, loc),
		Hourly:        HourlyConditions(samples, loc),
	}
}

// SummarizeTomorrow builds tomorrow's view from that day's samples only.
func SummarizeTomorrow(samples []ForecastSample) (NextDayWeather, error) {
	if len(samples) == 0 {
		return NextDayWeather{}, ErrNoForecast
	}

	maxT := samples[0].Temp
	minT := samples[0].Temp
	codes := make([]int, 0, len(samples))
	for _, s := range samples {
		maxT = math.Max(maxT, s.Temp)
		minT = math.Min(minT, s.Temp)
		codes = append(codes, s.ConditionCode)
	}

	code := MostFrequentCode(codes)
	return NextDayWeather{
		Condition:     ConditionFromCode(code),
		ConditionCode: code,
		TempMax:       round(maxT),
		TempMin:       round(minT),
	}, nil
}

// PrecipitationByPeriod returns the max rounded pop percentage per period;
// empty periods are 0.
func PrecipitationByPeriod(samples []ForecastSample, loc *time.Location) [4]int {
	var out [4]int
	for _, s := range samples {
		pct := round(s.Pop * 100)
		p := periodOf(s.Time.In(loc).Hour())
		if pct > out[p] {
			out[p] = pct
		}
	}
	return out
}

func periodOf(hour int) int {
	switch {
	case hour >= 6 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodMidday
	case hour >= 18:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

var representativeHours = []int{6, 12, 18}

// HourlyConditions picks one condition near 06:00, 12:00 and 18:00: the
// first sample within three hours, else the first sample, else cloudy.
func HourlyConditions(samples []ForecastSample, loc *time.Location) []Condition {
	out := make([]Condition, 0, len(representativeHours))
	for _, target := range representativeHours {
		cond := ConditionCloudy
		if len(samples) > 0 {
			cond = ConditionFromCode(samples[0].ConditionCode)
		}
		for _, s := range samples {
			d := s.Time.In(loc).Hour() - target
			if d >= -3 && d <= 3 {
				cond = ConditionFromCode(s.ConditionCode)
				break
			}
		}
		out = append(out, cond)
	}
	return out
}

// MostFrequentCode returns the most common code; ties go to the code seen
// first.
func MostFrequentCode(codes []int) int {
	if len(codes) == 0 {
		return 0
	}

	counts := make(map[int]int, len(codes))
	order := make([]int, 0, len(codes))
	for _, c := range codes {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best := order[0]
	for _, c := range order[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// round rounds half up, so -2.5 becomes -2.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func (s Snapshot) validate() error {
	if s.Today.TempMin > s.Today.TempMax {
		return fmt.Errorf("today min %d above max %d", s.Today.TempMin, s.Today.TempMax)
	}
	if s.Tomorrow.TempMin > s.Tomorrow.TempMax {
		return fmt.Errorf("tomorrow min %d above max %d", s.Tomorrow.TempMin, s.Tomorrow.TempMax)
	}
	return nil
}
