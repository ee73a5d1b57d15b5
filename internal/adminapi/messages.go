package adminapi

import (
	"net/http"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/talkincode/wacapture/internal/store"
)

// searchMessages serves the message search endpoint. All filters are
// optional and combine with AND; no filters returns the newest page.
func (s *WebServer) searchMessages(c echo.Context) error {
	query := store.SearchQuery{
		Search:    c.QueryParam("search"),
		GroupName: c.QueryParam("groupName"),
		Sender:    c.QueryParam("sender"),
		Limit:     cast.ToInt(c.QueryParam("limit")),
		Offset:    cast.ToInt(c.QueryParam("offset")),
	}

	if raw := c.QueryParam("dateFrom"); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid dateFrom")
		}
		query.DateFrom = &t
	}
	if raw := c.QueryParam("dateTo"); raw != "" {
		t, err := dateparse.ParseAny(raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid dateTo")
		}
		// A bare date means the whole day, so the bound moves to its last
		// instant to keep the range inclusive.
		if len(raw) <= len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		query.DateTo = &t
	}

	messages, total, err := s.messages.Search(c.Request().Context(), query)
	if err != nil {
		zap.L().Error("message search failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Search failed")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
		"total":    total,
	})
}

// listGroups returns the distinct group names seen in recent traffic.
func (s *WebServer) listGroups(c echo.Context) error {
	groups, err := s.messages.ListGroups(c.Request().Context())
	if err != nil {
		zap.L().Error("group listing failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to list groups")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"groups": groups})
}
