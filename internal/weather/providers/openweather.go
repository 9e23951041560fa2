package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-display/internal/retry"
	"github.com/i474232898/weather-display/internal/weather"
)

const defaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherConfig configures OpenWeatherClient. Empty fields take the
// OpenWeatherMap defaults.
type OpenWeatherConfig struct {
	APIKey  string
	BaseURL string
	Units   string
	Lang    string
	// Location decides where calendar days start and end.
	Location *time.Location
	// Attempts is the number of tries per request; 1 disables retries.
	Attempts int
}

// OpenWeatherClient implements weather.Client against the OpenWeatherMap
// current-conditions and 5 day / 3 hour forecast endpoints.
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	units   string
	lang    string
	loc     *time.Location
	now     func() time.Time
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherClient(client *http.Client, cfg OpenWeatherConfig) *OpenWeatherClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenWeatherURL
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.Lang == "" {
		cfg.Lang = "ja"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}

	return &OpenWeatherClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		units:   cfg.Units,
		lang:    cfg.Lang,
		loc:     cfg.Location,
		now:     time.Now,
		httpCfg: HTTPClientConfig{
			Client: client,
			Retry: retry.Options{
				MaxAttempts: cfg.Attempts,
				Delay:       500 * time.Millisecond,
				MaxDelay:    5 * time.Second,
			},
		},
		circuit: cb,
	}
}

type owCondition struct {
	ID int `json:"id"`
}

type owCurrent struct {
	Main struct {
		Temp    float64 `json:"temp"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []owCondition `json:"weather"`
}

type owForecast struct {
	List []struct {
		Dt   int64   `json:"dt"`
		Pop  float64 `json:"pop"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []owCondition `json:"weather"`
	} `json:"list"`
}

func conditionCode(items []owCondition) int {
	if len(items) == 0 {
		return 0
	}
	return items[0].ID
}

// FetchToday summarises the current local day from current conditions and
// the forecast, fetched in parallel.
func (c *OpenWeatherClient) FetchToday(ctx context.Context, lat, lon float64) (weather.DailyWeather, error) {
	var (
		current weather.CurrentReading
		samples []weather.ForecastSample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.current(gctx, lat, lon)
		if err != nil {
			return err
		}
		current = r
		return nil
	})
	g.Go(func() error {
		s, err := c.forecast(gctx, lat, lon)
		if err != nil {
			return err
		}
		samples = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return weather.DailyWeather{}, err
	}

	start, end := weather.DayWindow(c.now(), c.loc, 0)
	return weather.SummarizeToday(current, weather.SamplesBetween(samples, start, end), c.loc), nil
}

// FetchTomorrow summarises the next local day from the forecast alone.
func (c *OpenWeatherClient) FetchTomorrow(ctx context.Context, lat, lon float64) (weather.NextDayWeather, error) {
	samples, err := c.forecast(ctx, lat, lon)
	if err != nil {
		return weather.NextDayWeather{}, err
	}

	start, end := weather.DayWindow(c.now(), c.loc, 1)
	return weather.SummarizeTomorrow(weather.SamplesBetween(samples, start, end))
}

func (c *OpenWeatherClient) current(ctx context.Context, lat, lon float64) (weather.CurrentReading, error) {
	var payload owCurrent
	if err := c.get(ctx, "/weather", lat, lon, &payload); err != nil {
		return weather.CurrentReading{}, err
	}
	return weather.CurrentReading{
		ConditionCode: conditionCode(payload.Weather),
		Temp:          payload.Main.Temp,
		TempMin:       payload.Main.TempMin,
		TempMax:       payload.Main.TempMax,
	}, nil
}

func (c *OpenWeatherClient) forecast(ctx context.Context, lat, lon float64) ([]weather.ForecastSample, error) {
	var payload owForecast
	if err := c.get(ctx, "/forecast", lat, lon, &payload); err != nil {
		return nil, err
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		samples = append(samples, weather.ForecastSample{
			Time:          time.Unix(item.Dt, 0).UTC(),
			Pop:           item.Pop,
			Temp:          item.Main.Temp,
			ConditionCode: conditionCode(item.Weather),
		})
	}
	return samples, nil
}

func (c *OpenWeatherClient) get(ctx context.Context, path string, lat, lon float64, out any) error {
	if c.apiKey == "" {
		return &weather.FetchFailure{Kind: weather.FailureUnauthorized, Err: fmt.Errorf("openweather api key is not configured")}
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("appid", c.apiKey)
		values.Set("units", c.units)
		values.Set("lang", c.lang)

		u := fmt.Sprintf("%s%s?%s", c.baseURL, path, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &weather.FetchFailure{Kind: weather.FailureUnknown, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}
