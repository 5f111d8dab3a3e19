package server

import (
	"context"
	"net/http"

	"orderhub/internal/handler"
	"orderhub/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type Handlers struct {
	Orders    *handler.OrderHandler
	Catalog   *handler.CatalogHandler
	Analytics *handler.AnalyticsHandler
}

// health が nil なら常に ok
func RegisterRoutes(e *echo.Echo, h Handlers, gatherer prometheus.Gatherer, health func(context.Context) error) {
	h.Orders.RegisterRoutes(e)
	h.Catalog.RegisterRoutes(e)
	h.Analytics.RegisterRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		if health != nil {
			if err := health(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
}
