package server

import (
	"time"

	appointmentdomain "github.com/smallbiznis/garagedesk/internal/appointment/domain"
	catalogdomain "github.com/smallbiznis/garagedesk/internal/catalog/domain"
	invoicedomain "github.com/smallbiznis/garagedesk/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/garagedesk/internal/payment/domain"
	"github.com/smallbiznis/garagedesk/internal/pricing"
)

// Amounts leave the API as fixed two-decimal strings.

type serviceView struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

func newServiceView(s catalogdomain.GarageService) serviceView {
	return serviceView{
		ID:    s.ID.String(),
		Code:  s.Code,
		Name:  s.Name,
		Price: pricing.Format(s.Price),
	}
}

type snapshotView struct {
	ServiceID string    `json:"service_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	TakenAt   time.Time `json:"taken_at"`
}

type appointmentView struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"`
	CustomerName string         `json:"customer_name"`
	Services     []snapshotView `json:"services"`
	TotalPrice   string         `json:"total_price"`
	ScheduledAt  time.Time      `json:"scheduled_at"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func newAppointmentView(a appointmentdomain.Appointment) appointmentView {
	services := make([]snapshotView, 0, len(a.Services))
	for _, snap := range a.Services {
		services = append(services, snapshotView{
			ServiceID: snap.ServiceID.String(),
			Name:      snap.Name,
			Price:     pricing.Format(snap.Price),
			TakenAt:   snap.TakenAt,
		})
	}
	return appointmentView{
		ID:           a.ID.String(),
		OwnerID:      a.OwnerID,
		CustomerName: a.CustomerName,
		Services:     services,
		TotalPrice:   pricing.Format(a.TotalPrice),
		ScheduledAt:  a.ScheduledAt,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
	}
}

type lineItemView struct {
	Position    int     `json:"position"`
	Description string  `json:"description"`
	Price       string  `json:"price"`
	ServiceID   *string `json:"service_id,omitempty"`
}

type invoiceView struct {
	ID            string         `json:"id"`
	AppointmentID string         `json:"appointment_id"`
	OwnerID       string         `json:"owner_id"`
	CustomerName  string         `json:"customer_name"`
	Items         []lineItemView `json:"items"`
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	IssuedAt      time.Time      `json:"issued_at"`
	PaidAt        *time.Time     `json:"paid_at"`
}

func newInvoiceView(inv invoicedomain.Invoice) invoiceView {
	items := make([]lineItemView, 0, len(inv.Items))
	for _, item := range inv.Items {
		view := lineItemView{
			Position:    item.Position,
			Description: item.Description,
			Price:       pricing.Format(item.Price),
		}
		if item.ServiceID != nil {
			id := item.ServiceID.String()
			view.ServiceID = &id
		}
		items = append(items, view)
	}
	return invoiceView{
		ID:            inv.ID.String(),
		AppointmentID: inv.AppointmentID.String(),
		OwnerID:       inv.OwnerID,
		CustomerName:  inv.CustomerName,
		Items:         items,
		Amount:        pricing.Format(inv.Amount),
		Currency:      inv.Currency,
		Status:        string(inv.Status),
		IssuedAt:      inv.IssuedAt,
		PaidAt:        inv.PaidAt,
	}
}

type attemptView struct {
	ID                string    `json:"id"`
	InvoiceID         string    `json:"invoice_id"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	Method            string    `json:"method"`
	Status            string    `json:"status"`
	ProviderSessionID *string   `json:"provider_session_id,omitempty"`
	FailureReason     *string   `json:"failure_reason,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newAttemptView(a paymentdomain.PaymentAttempt) attemptView {
	return attemptView{
		ID:                a.ID.String(),
		InvoiceID:         a.InvoiceID.String(),
		Amount:            pricing.Format(a.Amount),
		Currency:          a.Currency,
		Method:            string(a.Method),
		Status:            string(a.Status),
		ProviderSessionID: a.ProviderSessionID,
		FailureReason:     a.FailureReason,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}
