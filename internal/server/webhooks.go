package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/payrail/internal/webhook/domain"
	"github.com/smallbiznis/payrail/pkg/telemetry/correlation"
)

const maxWebhookBodyBytes = 1 << 20

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EventID string `json:"event_id,omitempty"`
}

// HandleWebhook answers 200 when the delivery was reconciled (or already was),
// 400 when it was rejected or failed structurally and 500 on storage faults.
func (s *Server) HandleWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		_ = c.Error(webhookdomain.ErrInvalidPayload)
		c.JSON(http.StatusBadRequest, webhookResponse{Message: "Unable to read webhook payload"})
		return
	}

	ctx := c.Request.Context()
	if cid := strings.TrimSpace(c.GetHeader(correlation.HeaderName)); cid != "" {
		ctx = correlation.ContextWithCorrelationID(ctx, cid)
	}
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	c.Header(correlation.HeaderName, cid)

	res, err := s.webhookSvc.Ingest(ctx, provider, payload, c.Request.Header)
	if err != nil {
		_ = c.Error(err)
		status, message := webhookFailure(err)
		c.JSON(status, webhookResponse{Message: message})
		return
	}

	c.Set("webhook_event_id", res.EventID)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	c.JSON(status, webhookResponse{
		Success: res.Success,
		Message: res.Message,
		EventID: res.EventID,
	})
}

func webhookFailure(err error) (int, string) {
	switch {
	case errors.Is(err, webhookdomain.ErrInvalidPayload):
		return http.StatusBadRequest, "Invalid JSON payload"
	case errors.Is(err, webhookdomain.ErrInvalidProvider):
		return http.StatusBadRequest, "Invalid webhook provider"
	case errors.Is(err, webhookdomain.ErrProviderNotFound):
		return http.StatusNotFound, "Unknown webhook provider"
	default:
		return http.StatusInternalServerError, "Failed to process webhook"
	}
}

func (s *Server) GetWebhookEvent(c *gin.Context) {
	resp, err := s.webhookSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
