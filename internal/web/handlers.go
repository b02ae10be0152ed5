package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"eventcal/internal/views"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// render writes data as JSON, or maps err to 404 (not found, bad page,
// bad date) or 500.
func render(c *gin.Context, data any, err error) {
	if err == nil {
		c.JSON(http.StatusOK, data)
		return
	}
	if errors.Is(err, views.ErrNotFound) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	_ = c.Error(err)
	writeError(c, http.StatusInternalServerError, "internal server error")
}

// uintParam parses a positive integer path parameter. A malformed value
// cannot name an existing row, so callers answer 404.
func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || n == 0 {
		writeError(c, http.StatusNotFound, "not found: invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		writeError(c, http.StatusNotFound, "not found: invalid "+name)
		return 0, false
	}
	return n, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleCalendarList(c *gin.Context) {
	data, err := s.views.CalendarList(c.Request.Context())
	render(c, data, err)
}

func (s *Server) handleEventList(c *gin.Context) {
	data, err := s.views.EventList(c.Request.Context(), c.Param("calendar_slug"), c.Query("page"))
	render(c, data, err)
}

func (s *Server) handlePastEventList(c *gin.Context) {
	data, err := s.views.PastEventList(c.Request.Context(), c.Param("calendar_slug"), c.Query("page"))
	render(c, data, err)
}

func (s *Server) handleEventListByDate(c *gin.Context) {
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	month, ok := intParam(c, "month")
	if !ok {
		return
	}
	day, ok := intParam(c, "day")
	if !ok {
		return
	}
	data, err := s.views.EventListByDate(c.Request.Context(), c.Param("calendar_slug"), year, month, day, c.Query("page"))
	render(c, data, err)
}

func (s *Server) handleEventListByCategory(c *gin.Context) {
	data, err := s.views.EventListByCategory(c.Request.Context(), c.Param("calendar_slug"), c.Param("slug"), c.Query("page"))
	render(c, data, err)
}

func (s *Server) handleEventListByLocation(c *gin.Context) {
	pk, ok := uintParam(c, "pk")
	if !ok {
		return
	}
	data, err := s.views.EventListByLocation(c.Request.Context(), c.Param("calendar_slug"), pk, c.Query("page"))
	render(c, data, err)
}

func (s *Server) handleEventCategoryList(c *gin.Context) {
	data, err := s.views.EventCategoryList(c.Request.Context(), c.Param("calendar_slug"), c.Query("page"))
	render(c, data, err)
}

func (s *Server) handleEventLocationList(c *gin.Context) {
	data, err := s.views.EventLocationList(c.Request.Context(), c.Param("calendar_slug"), c.Query("page"))
	render(c, data, err)
}

func (s *Server) handleEventDetail(c *gin.Context) {
	pk, ok := uintParam(c, "pk")
	if !ok {
		return
	}
	data, err := s.views.EventDetail(c.Request.Context(), c.Param("calendar_slug"), pk)
	render(c, data, err)
}
