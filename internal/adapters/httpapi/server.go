// Package httpapi exposes an item provider over HTTP and consumes one.
package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"catalogtree/internal/application"
	"catalogtree/internal/domain"
	"catalogtree/internal/ports"
)

const (
	APIRoot      = "/api/v1"
	ChildrenPath = APIRoot + "/children"
	HealthPath   = APIRoot + "/health"
)

// ChildrenResponse is the body of a children listing.
type ChildrenResponse struct {
	Items         []domain.Item `json:"items"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

// HealthResponse is the body of a health check.
type HealthResponse struct {
	Status string `json:"status"`
	Root   string `json:"root,omitempty"`
}

// ErrorResponse is the body echo writes for failed requests.
type ErrorResponse struct {
	Message string `json:"message"`
}

// BuildServer creates the echo server that serves provider pages.
func BuildServer(provider ports.ItemProvider, loglevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "", "warn":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}

	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}

	// logging for server-side latency.
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			meth := c.Request().Method
			path := c.Request().URL
			begin := time.Now()
			err := next(c)
			c.Logger().Infof(
				"%s %s status = %d in %v / error = %v",
				meth, path, c.Response().Status, time.Since(begin), err,
			)
			return err
		}
	})

	e.GET(ChildrenPath, ChildrenHandler(provider))
	e.GET(HealthPath, HealthHandler(provider))

	return e
}

// ChildrenHandler serves GET /api/v1/children?key=&page_token=&limit=.
func ChildrenHandler(provider ports.ItemProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		limit := application.DefaultPageSize
		if raw := c.QueryParam("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "limit should be an integer").SetInternal(err)
			}
			limit = n
		}
		if err := application.ValidatePageSize("limit", limit); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		page, err := provider.ListChildren(ctx, c.QueryParam("key"), c.QueryParam("page_token"), limit)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, "failed to list children: "+err.Error()).SetInternal(err)
		}

		items := page.Items
		if items == nil {
			items = []domain.Item{}
		}
		return c.JSON(http.StatusOK, ChildrenResponse{Items: items, NextPageToken: page.NextPageToken})
	}
}

// HealthHandler serves GET /api/v1/health.
func HealthHandler(provider ports.ItemProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := HealthResponse{Status: "ok"}
		if namer, ok := provider.(ports.RootNamer); ok {
			resp.Root = namer.RootName()
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// jsonSerializer implements echo.JSONSerializer with goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body").SetInternal(err)
	}
	return nil
}
