package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatewaydomain "github.com/smallbiznis/payrail/internal/gateway/domain"
	subscriptiondomain "github.com/smallbiznis/payrail/internal/subscription/domain"
)

type planItemRequest struct {
	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description *string `json:"description"`
}

type createPlanRequest struct {
	Period   string              `json:"period"`
	Interval int                 `json:"interval"`
	Item     planItemRequest     `json:"item"`
	Notes    gatewaydomain.Notes `json:"notes"`
}

type createSubscriptionRequest struct {
	PlanID         string              `json:"plan_id"`
	CustomerNotify *int                `json:"customer_notify"`
	Quantity       int                 `json:"quantity"`
	StartAt        *int64              `json:"start_at"`
	TotalCount     *int                `json:"total_count"`
	Notes          gatewaydomain.Notes `json:"notes"`
}

type cancelSubscriptionRequest struct {
	CancelAtCycleEnd bool `json:"cancel_at_cycle_end"`
}

type pauseSubscriptionRequest struct {
	PauseAt string `json:"pause_at"`
}

type resumeSubscriptionRequest struct {
	ResumeAt string `json:"resume_at"`
}

type listSubscriptionsQuery struct {
	Count      int    `form:"count,default=10"`
	Skip       int    `form:"skip,default=0"`
	PlanID     string `form:"plan_id"`
	CustomerID string `form:"customer_id"`
}

// bindOptionalJSON treats an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Item.Amount <= 0 {
		AbortWithError(c, subscriptiondomain.ErrInvalidAmount)
		return
	}
	if req.Interval < 0 {
		AbortWithError(c, newValidationError("interval", "invalid_interval", "interval must be greater than zero"))
		return
	}

	resp, err := s.subscriptionSvc.CreatePlan(c.Request.Context(), subscriptiondomain.CreatePlanRequest{
		Period:      strings.TrimSpace(req.Period),
		Interval:    req.Interval,
		Name:        strings.TrimSpace(req.Item.Name),
		Amount:      toMinorUnits(req.Item.Amount),
		Currency:    strings.TrimSpace(req.Item.Currency),
		Description: req.Item.Description,
		Notes:       req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPlan(c *gin.Context) {
	resp, err := s.subscriptionSvc.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlans(c *gin.Context) {
	page, err := bindCount(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.ListPlans(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Quantity < 0 {
		AbortWithError(c, newValidationError("quantity", "invalid_quantity", "quantity must be greater than zero"))
		return
	}
	notify := true
	if req.CustomerNotify != nil {
		notify = *req.CustomerNotify != 0
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateSubscriptionRequest{
		PlanID:         strings.TrimSpace(req.PlanID),
		TotalCount:     req.TotalCount,
		Quantity:       req.Quantity,
		CustomerNotify: notify,
		StartAt:        req.StartAt,
		Notes:          req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	var query listSubscriptionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if query.Count < 1 || query.Count > 100 {
		AbortWithError(c, newValidationError("count", "invalid_count", "count must be between 1 and 100"))
		return
	}
	if query.Skip < 0 {
		AbortWithError(c, newValidationError("skip", "invalid_skip", "skip must not be negative"))
		return
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), subscriptiondomain.ListRemoteRequest{
		Count:      query.Count,
		Skip:       query.Skip,
		PlanID:     query.PlanID,
		CustomerID: query.CustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListStoredSubscriptions(c *gin.Context) {
	page, err := bindOffset(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.ListLocal(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp, "count": len(resp)})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	var req cancelSubscriptionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), c.Param("id"), req.CancelAtCycleEnd)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PauseSubscription(c *gin.Context) {
	var req pauseSubscriptionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Pause(c.Request.Context(), c.Param("id"), req.PauseAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResumeSubscription(c *gin.Context) {
	var req resumeSubscriptionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Resume(c.Request.Context(), c.Param("id"), req.ResumeAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscriptionInvoices(c *gin.Context) {
	resp, err := s.subscriptionSvc.Invoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	resp, err := s.subscriptionSvc.Invoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
