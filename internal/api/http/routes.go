package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	appcore "github.com/i474232898/weather-display/internal/app"
	"github.com/i474232898/weather-display/internal/failure"
	"github.com/i474232898/weather-display/internal/location"
	"github.com/i474232898/weather-display/internal/network"
	"github.com/i474232898/weather-display/internal/permission"
	"github.com/i474232898/weather-display/internal/platform/obs"
	"github.com/i474232898/weather-display/internal/scheduler"
	"github.com/i474232898/weather-display/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, core *appcore.App) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		res, err := core.Weather(obs.WithRequestID(c.UserContext()))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	})

	v1.Get("/weather/coords", func(c *fiber.Ctx) error {
		var q coordsQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := core.WeatherAt(obs.WithRequestID(c.UserContext()), *q.Lat, *q.Lon, q.Refresh)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		res, err := core.Refresh(obs.WithRequestID(c.UserContext()))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	})

	v1.Get("/location", func(c *fiber.Ctx) error {
		return c.JSON(locationView(core.LocationStatus()))
	})

	v1.Post("/location/refresh", func(c *fiber.Ctx) error {
		st, err := core.RefreshLocation(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(locationView(st))
	})

	v1.Post("/location/permission", func(c *fiber.Ctx) error {
		st, err := core.RequestPermission(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(locationView(st))
	})

	v1.Post("/location/settings", func(c *fiber.Ctx) error {
		if err := core.OpenSettings(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to open settings")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/lifecycle", func(c *fiber.Ctx) error {
		var req lifecycleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := core.OnAppState(c.UserContext(), scheduler.AppState(req.State)); err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"location":   locationView(core.LocationStatus()),
			"autoUpdate": core.AutoUpdateStatus(),
		})
	})

	v1.Get("/auto-update", func(c *fiber.Ctx) error {
		return c.JSON(core.AutoUpdateStatus())
	})

	v1.Put("/auto-update", func(c *fiber.Ctx) error {
		var req autoUpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var interval time.Duration
		if req.Interval != "" {
			d, err := time.ParseDuration(req.Interval)
			if err != nil || d < time.Minute {
				return fiber.NewError(fiber.StatusBadRequest, "interval must be a duration of at least 1m")
			}
			interval = d
		}

		core.SetAutoUpdate(c.UserContext(), *req.Enabled, interval)
		return c.JSON(core.AutoUpdateStatus())
	})

	v1.Get("/cache", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"sizeBytes": core.CacheSize(c.UserContext())})
	})

	v1.Delete("/cache", func(c *fiber.Ctx) error {
		res, err := core.ClearCache(obs.WithRequestID(c.UserContext()))
		if err != nil {
			if errors.Is(err, appcore.ErrNoLocation) {
				return c.SendStatus(fiber.StatusNoContent)
			}
			return writeError(c, err)
		}
		return c.JSON(res)
	})

	v1.Get("/network", func(c *fiber.Ctx) error {
		return c.JSON(core.NetworkStatus())
	})

	v1.Put("/network", func(c *fiber.Ctx) error {
		var req network.Status
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		core.UpdateNetwork(req)
		return c.JSON(fiber.Map{
			"network":    core.NetworkStatus(),
			"online":     req.Online(),
			"autoUpdate": core.AutoUpdateStatus(),
		})
	})
}

type coordsQuery struct {
	Lat     *float64 `query:"lat" validate:"required,latitude"`
	Lon     *float64 `query:"lon" validate:"required,longitude"`
	Refresh bool     `query:"refresh"`
}

type lifecycleRequest struct {
	State string `json:"state" validate:"required,oneof=active background inactive"`
}

type autoUpdateRequest struct {
	Enabled  *bool  `json:"enabled" validate:"required"`
	Interval string `json:"interval"`
}

type locationResponse struct {
	permission.Status
	Failure *failure.Info `json:"failure,omitempty"`
}

func locationView(st permission.Status) locationResponse {
	out := locationResponse{Status: st}
	if st.Failure != nil {
		info := failure.Classify(st.Failure)
		out.Failure = &info
	}
	return out
}

// writeError maps typed failures to a status code and a classified body.
func writeError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var lf *location.Failure
	switch {
	case errors.Is(err, appcore.ErrNoLocation):
		code = fiber.StatusConflict
	case errors.As(err, &lf):
		switch lf.Kind {
		case location.PermissionDenied:
			code = fiber.StatusForbidden
		case location.ServiceDisabled:
			code = fiber.StatusConflict
		case location.TimedOut:
			code = fiber.StatusGatewayTimeout
		}
	case errors.Is(err, weather.ErrNoData):
		code = fiber.StatusServiceUnavailable
	}

	return errorBody(c, code, err)
}

// ErrorHandler renders errors that reach Fiber, such as validation
// failures returned as *fiber.Error, in the same body as writeError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return errorBody(c, code, err)
}

func errorBody(c *fiber.Ctx, code int, err error) error {
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
		"failure": failure.Classify(err),
	})
}
