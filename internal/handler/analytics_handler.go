package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"orderhub/internal/usecase"

	"github.com/labstack/echo/v4"
)

const defaultTopLimit = 10

const dateOnly = "2006-01-02"

type AnalyticsHandler struct {
	uc *usecase.AnalyticsUsecase
}

func NewAnalyticsHandler(uc *usecase.AnalyticsUsecase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

func (h *AnalyticsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/analytics")
	g.GET("/customers/:id/spending", h.customerSpending)
	g.GET("/top-products", h.topProducts)
	g.GET("/sales", h.sales)
}

// 注文がない顧客は 200 で null を返す
func (h *AnalyticsHandler) customerSpending(c echo.Context) error {
	out, err := h.uc.CustomerSpending(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) topProducts(c echo.Context) error {
	// limit（default 10）
	limit := defaultTopLimit
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid limit")
		}
		limit = l
	}

	out, err := h.uc.TopSellingProducts(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AnalyticsHandler) sales(c echo.Context) error {
	start, err := parseDate(c.QueryParam("startDate"), false)
	if err != nil {
		return badRequest(c, fmt.Sprintf("invalid startDate: %v", err))
	}
	end, err := parseDate(c.QueryParam("endDate"), true)
	if err != nil {
		return badRequest(c, fmt.Sprintf("invalid endDate: %v", err))
	}

	out, err := h.uc.SalesAnalytics(c.Request().Context(), start, end)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// RFC3339 か YYYY-MM-DD（UTC）。日付だけの終了日はその日の終わりまで含める
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("required")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC3339 or %s", dateOnly)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
