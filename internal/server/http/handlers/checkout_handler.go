package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/eshop/internal/domain/model"
	"github.com/polkiloo/eshop/internal/server/http/dto"
)

// CheckoutHandler manages checkout endpoints.
type CheckoutHandler struct {
	facade CheckoutFacade
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(facade CheckoutFacade) *CheckoutHandler {
	return &CheckoutHandler{facade: facade}
}

// Initialize handles POST /api/checkout.
func (h *CheckoutHandler) Initialize(c *gin.Context) {
	userID := CurrentUserID(c)

	result, err := h.facade.InitializeCheckout(c.Request.Context(), userID)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.InitializeCheckoutResponse{
		OrderID:     result.OrderID,
		OrderNumber: result.OrderNumber,
		ApprovalURL: result.ApprovalURL,
		GrandTotal:  result.GrandTotal.StringFixed(model.MoneyScale),
		Status:      string(result.Status),
	})
}

// Complete handles POST /api/checkout/complete, the provider return callback.
func (h *CheckoutHandler) Complete(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "paypal_order_id is required"})
		return
	}

	order, err := h.facade.CompleteCheckout(c.Request.Context(), req.PayPalOrderID)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Cancel handles POST /api/checkout/cancel, the provider cancel callback.
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "paypal_order_id is required"})
		return
	}

	if err := h.facade.CancelCheckout(c.Request.Context(), req.PayPalOrderID); err != nil {
		writeCheckoutError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
