package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

type checkoutSessionRequest struct {
	InvoiceID string `json:"invoice_id"`
}

type verifySessionRequest struct {
	InvoiceID string `json:"invoice_id"`
	SessionID string `json:"session_id"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutSessionRequest
	// The rate limit middleware may have read the body already.
	if err := c.ShouldBindBodyWithJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.CreateSession(c.Request.Context(), principalFrom(c), req.InvoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"attempt_id":   result.AttemptID.String(),
		"session_id":   result.SessionID,
		"redirect_url": result.RedirectURL,
	}})
}

// VerifyCheckoutSession needs no principal: the session id returned by the
// provider redirect is the capability.
func (s *Server) VerifyCheckoutSession(c *gin.Context) {
	var req verifySessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.VerifySession(c.Request.Context(), req.InvoiceID, req.SessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"invoice_id":   result.InvoiceID.String(),
		"status":       result.Status,
		"already_paid": result.AlreadyPaid,
	}})
}

// stripeWebhookLimit caps webhook bodies. Stripe events stay well below it.
const stripeWebhookLimit = 64 << 10

// HandleStripeWebhook is the second confirmation route next to
// VerifyCheckoutSession. Authenticity comes from the Stripe-Signature header,
// so the raw body must reach the service untouched.
func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, stripeWebhookLimit+1))
	if err != nil || len(payload) > stripeWebhookLimit {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.paymentSvc.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
