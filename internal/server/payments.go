package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/payrail/internal/payment/domain"
)

type verifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// capturePaymentRequest takes the amount in major units; nil captures the authorized amount.
type capturePaymentRequest struct {
	PaymentID string   `json:"payment_id"`
	Amount    *float64 `json:"amount"`
	Currency  string   `json:"currency"`
}

func (s *Server) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Signature) == "" {
		AbortWithError(c, newValidationError("signature", "required", "signature is required"))
		return
	}

	resp, err := s.paymentSvc.Verify(c.Request.Context(), paymentdomain.VerifyRequest{
		OrderID:   strings.TrimSpace(req.OrderID),
		PaymentID: strings.TrimSpace(req.PaymentID),
		Signature: strings.TrimSpace(req.Signature),
	})
	if errors.Is(err, paymentdomain.ErrInvalidSignature) {
		c.JSON(http.StatusOK, gin.H{
			"data": paymentdomain.VerifyResult{
				Verified:  false,
				PaymentID: strings.TrimSpace(req.PaymentID),
				OrderID:   strings.TrimSpace(req.OrderID),
			},
			"message": "Payment signature verification failed",
		})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := "Payment verified successfully"
	if resp.Captured {
		message = "Payment verified and captured successfully"
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "message": message})
}

func (s *Server) CapturePayment(c *gin.Context) {
	var req capturePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var amount *int64
	if req.Amount != nil {
		if *req.Amount <= 0 {
			AbortWithError(c, paymentdomain.ErrInvalidAmount)
			return
		}
		minor := toMinorUnits(*req.Amount)
		amount = &minor
	}

	resp, err := s.paymentSvc.Capture(c.Request.Context(), paymentdomain.CaptureRequest{
		PaymentID: strings.TrimSpace(req.PaymentID),
		Amount:    amount,
		Currency:  strings.TrimSpace(req.Currency),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	message := "Payment captured successfully"
	if resp.AlreadyCaptured {
		message = "Payment is already captured"
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "message": message})
}

func (s *Server) ListPayments(c *gin.Context) {
	page, err := bindOffset(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp, "count": len(resp)})
}

func (s *Server) GetPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStoredPayment(c *gin.Context) {
	resp, err := s.paymentSvc.GetLocal(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
