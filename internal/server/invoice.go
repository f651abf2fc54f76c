package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/garagedesk/internal/invoice/domain"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
)

type extraItemRequest struct {
	Description string `json:"description"`
	Price       string `json:"price"`
}

type createInvoiceRequest struct {
	AppointmentID      string             `json:"appointment_id"`
	SelectedServiceIDs []string           `json:"selected_service_ids"`
	ExtraItems         []extraItemRequest `json:"extra_items"`
	Currency           string             `json:"currency"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	appointmentID, err := parseSnowflakeID(req.AppointmentID)
	if err != nil {
		AbortWithError(c, newValidationError("appointment_id", "invalid_appointment_id", "invalid appointment_id"))
		return
	}
	selected, err := parseSnowflakeIDs(req.SelectedServiceIDs)
	if err != nil {
		AbortWithError(c, newValidationError("selected_service_ids", "invalid_selected_service_ids", "invalid selected_service_ids"))
		return
	}
	extras := make([]invoicedomain.ExtraItem, 0, len(req.ExtraItems))
	for _, extra := range req.ExtraItems {
		price, err := parseAmount(extra.Price)
		if err != nil {
			AbortWithError(c, invoicedomain.ErrInvalidItem)
			return
		}
		extras = append(extras, invoicedomain.ExtraItem{Description: extra.Description, Price: price})
	}

	item, err := s.invoiceSvc.CreateFromAppointment(c.Request.Context(), principalFrom(c), invoicedomain.CreateRequest{
		AppointmentID:      appointmentID,
		SelectedServiceIDs: selected,
		ExtraItems:         extras,
		Currency:           req.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newInvoiceView(*item)})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), principalFrom(c), invoicedomain.ListRequest{
		Pagination: query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]invoiceView, 0, len(resp.Invoices))
	for _, item := range resp.Invoices {
		views = append(views, newInvoiceView(item))
	}
	c.JSON(http.StatusOK, listPage(views, resp.PageInfo))
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	item, err := s.invoiceSvc.Get(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newInvoiceView(*item)})
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	attempts, err := s.invoiceSvc.ListAttempts(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]attemptView, 0, len(attempts))
	for _, attempt := range attempts {
		views = append(views, newAttemptView(attempt))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

// MarkInvoicePaid is idempotent: an invoice that is already paid comes back
// unchanged with 200.
func (s *Server) MarkInvoicePaid(c *gin.Context) {
	item, err := s.invoiceSvc.MarkPaidManually(c.Request.Context(), principalFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newInvoiceView(*item)})
}
