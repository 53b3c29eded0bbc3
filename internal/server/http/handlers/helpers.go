package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/eshop/internal/domain/errors"
	"github.com/polkiloo/eshop/internal/domain/model"
	"github.com/polkiloo/eshop/internal/server/http/dto"
	"github.com/polkiloo/eshop/internal/server/http/middleware"
)

// CurrentUserID extracts the resolved user identifier from context.
func CurrentUserID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.UserIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

// writeCheckoutError maps domain failures to structured HTTP responses.
func writeCheckoutError(c *gin.Context, err error) {
	var (
		notFound     *domainErrors.ProductNotFoundError
		notAvailable *domainErrors.ProductNotAvailableError
		noStock      *domainErrors.InsufficientStockError
		captureErr   *domainErrors.PaymentCaptureError
		checkoutErr  *domainErrors.CheckoutError
	)

	switch {
	case errors.Is(err, domainErrors.ErrCartEmpty),
		errors.Is(err, domainErrors.ErrShippingAddressMissing):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error(), ProductIDs: notFound.IDs})
	case errors.As(err, &notAvailable):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error(), ProductID: notAvailable.ID})
	case errors.As(err, &noStock):
		available := noStock.Available
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error(), ProductID: noStock.ID, Available: &available})
	case errors.Is(err, domainErrors.ErrOrderNotFound), errors.Is(err, domainErrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domainErrors.ErrInvalidState):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &captureErr):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error(), OrderNumber: captureErr.OrderNumber})
	case errors.As(err, &checkoutErr):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(model.MoneyScale),
			LineTotal:   item.LineTotal.StringFixed(model.MoneyScale),
		})
	}
	return dto.OrderResponse{
		OrderID:           order.ID,
		Number:            order.Number,
		Status:            string(order.Status),
		Subtotal:          order.Subtotal.StringFixed(model.MoneyScale),
		Discount:          order.Discount.StringFixed(model.MoneyScale),
		ShippingCost:      order.ShippingCost.StringFixed(model.MoneyScale),
		Tax:               order.Tax.StringFixed(model.MoneyScale),
		GrandTotal:        order.GrandTotal.StringFixed(model.MoneyScale),
		ShippingAddress:   order.ShippingAddress,
		PaymentCapturedAt: order.PaymentCapturedAt,
		Items:             items,
	}
}
