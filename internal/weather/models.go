package weather

import (
	"context"
	"math"
	"time"
)

// Condition is one of the five display categories.
type Condition string

const (
	ConditionSunny   Condition = "sunny"
	ConditionCloudy  Condition = "cloudy"
	ConditionRainy   Condition = "rainy"
	ConditionThunder Condition = "thunder"
	ConditionSnow    Condition = "snow"
)

// ConditionFromCode maps an OpenWeatherMap condition id to a Condition.
// Unrecognised ids are cloudy.
func ConditionFromCode(code int) Condition {
	switch {
	case code >= 200 && code < 300:
		return ConditionThunder
	case code >= 300 && code < 600:
		return ConditionRainy
	case code >= 600 && code < 700:
		return ConditionSnow
	case code >= 700 && code < 800:
		return ConditionCloudy
	case code == 800:
		return ConditionSunny
	case code > 800 && code < 900:
		return ConditionCloudy
	default:
		return ConditionCloudy
	}
}

// Precipitation periods, in the order they appear in DailyWeather.
const (
	PeriodMorning = iota // 06-12
	PeriodMidday         // 12-18
	PeriodEvening        // 18-24
	PeriodNight          // 00-06
)

// Location is the point a snapshot was fetched for.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SameArea is how far, in degrees on either axis, a request may be from a
// cached snapshot's location and still be served from it.
const SameArea = 0.01

// Near reports whether (lat, lon) is within SameArea of l.
func (l Location) Near(lat, lon float64) bool {
	return math.Abs(l.Lat-lat) <= SameArea && math.Abs(l.Lon-lon) <= SameArea
}

// DailyWeather summarises the current calendar day.
type DailyWeather struct {
	Condition     Condition `json:"weather"`
	ConditionCode int       `json:"conditionCode"`
	TempMax       int       `json:"tempMax"`
	TempMin       int       `json:"tempMin"`
	// Precipitation holds the max probability (0-100) per period.
	Precipitation [4]int      `json:"rainChance"`
	Hourly        []Condition `json:"hourlyWeather"`
}

// NextDayWeather summarises the next calendar day.
type NextDayWeather struct {
	Condition     Condition `json:"weather"`
	ConditionCode int       `json:"conditionCode"`
	TempMax       int       `json:"tempMax"`
	TempMin       int       `json:"tempMin"`
}

// Snapshot is the unit that is cached and handed to consumers.
type Snapshot struct {
	Location  Location       `json:"location"`
	Today     DailyWeather   `json:"today"`
	Tomorrow  NextDayWeather `json:"tomorrow"`
	FetchedAt time.Time      `json:"lastUpdate"` // always UTC
}

// CurrentReading is the current-conditions payload reduced to what the
// summaries need.
type CurrentReading struct {
	ConditionCode int
	Temp          float64
	TempMin       float64
	TempMax       float64
}

// ForecastSample is one 3-hourly forecast entry.
type ForecastSample struct {
	Time          time.Time
	Pop           float64 // 0..1
	Temp          float64
	ConditionCode int
}

// Client fetches and normalises remote weather for a coordinate.
type Client interface {
	FetchToday(ctx context.Context, lat, lon float64) (DailyWeather, error)
	FetchTomorrow(ctx context.Context, lat, lon float64) (NextDayWeather, error)
}

// Reachability reports whether the network is believed usable.
type Reachability interface {
	Online() bool
}
