package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	appointmentdomain "github.com/smallbiznis/garagedesk/internal/appointment/domain"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
)

type createAppointmentRequest struct {
	CustomerName string   `json:"customer_name"`
	ServiceIDs   []string `json:"service_ids"`
	ScheduledAt  string   `json:"scheduled_at"`
	Notes        string   `json:"notes"`
}

func (s *Server) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	serviceIDs, err := parseSnowflakeIDs(req.ServiceIDs)
	if err != nil {
		AbortWithError(c, appointmentdomain.ErrInvalidServices)
		return
	}
	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledAt))
	if err != nil {
		AbortWithError(c, appointmentdomain.ErrInvalidScheduledAt)
		return
	}

	item, err := s.appointmentSvc.Create(c.Request.Context(), principalFrom(c), appointmentdomain.CreateRequest{
		CustomerName: req.CustomerName,
		ServiceIDs:   serviceIDs,
		ScheduledAt:  scheduledAt,
		Notes:        req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newAppointmentView(*item)})
}

func (s *Server) ListAppointments(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.appointmentSvc.List(c.Request.Context(), principalFrom(c), appointmentdomain.ListRequest{
		Pagination: query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]appointmentView, 0, len(resp.Appointments))
	for _, item := range resp.Appointments {
		views = append(views, newAppointmentView(item))
	}
	c.JSON(http.StatusOK, listPage(views, resp.PageInfo))
}

func (s *Server) GetAppointmentByID(c *gin.Context) {
	item, err := s.appointmentSvc.Get(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newAppointmentView(*item)})
}

func (s *Server) DeleteAppointment(c *gin.Context) {
	if err := s.appointmentSvc.Delete(c.Request.Context(), principalFrom(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
