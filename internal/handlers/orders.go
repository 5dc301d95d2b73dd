package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"impulse-backend/internal/middleware"
	"impulse-backend/internal/models"
	"impulse-backend/internal/orders"
	"impulse-backend/internal/phone"
)

/* =========================
   REQUEST DTOs
========================= */

type orderItemRequest struct {
	Name string `json:"name" binding:"required"`
	Qty  int    `json:"qty" binding:"required,min=1"`
}

type orderCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

type orderPaidRequest struct {
	OrderNumber   string               `json:"orderNumber" binding:"required"`
	Customer      orderCustomerRequest `json:"customer" binding:"required"`
	Items         []orderItemRequest   `json:"items" binding:"required,min=1,dive"`
	Total         string               `json:"total" binding:"required"`
	PaymentStatus string               `json:"paymentStatus" binding:"required,oneof=paid pending failed"`
	PaymentMethod string               `json:"paymentMethod" binding:"required"`
	Address       string               `json:"address" binding:"required"`
}

/* =========================
   ORDER PAID WEBHOOK
========================= */

// OrderPaid handles the payment provider webhook. Re-submission of a known
// order number updates it in place; the confirmation message is queued at
// most once per order.
func OrderPaid(svc *orders.Service, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders/paid"
		defer handlePanic(c, route)

		success := false
		defer func() { middleware.RecordOrderOperation("paid_webhook", success) }()

		var req orderPaidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if !phone.IsValid(req.Customer.Phone) {
			respondWithError(c, http.StatusBadRequest, route, "invalid customer phone")
			return
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, models.OrderItem{Name: item.Name, Quantity: item.Qty})
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := svc.CreateOrUpdateOrder(ctx, orders.CreateOrderData{
			OrderNumber:   req.OrderNumber,
			CustomerName:  req.Customer.Name,
			CustomerPhone: req.Customer.Phone,
			Items:         items,
			Total:         req.Total,
			PaymentStatus: req.PaymentStatus,
			PaymentMethod: req.PaymentMethod,
			Address:       req.Address,
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "failed to process order")
			return
		}

		svc.QueueConfirmationIfNeeded(ctx, order)

		success = true
		c.JSON(http.StatusOK, gin.H{
			"ok":                  true,
			"customerTrackingUrl": fmt.Sprintf("%s/t/%s?token=%s", baseURL, order.OrderNumber, order.CustomerToken),
			"courierTrackingUrl":  fmt.Sprintf("%s/c/%s?token=%s", baseURL, order.OrderNumber, order.CourierToken),
		})
	}
}

/* =========================
   ADMIN LIST
========================= */

func ListOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer handlePanic(c, route)

		limit := int64(50)
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		if limit > 200 {
			limit = 200
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.ListRecentOrders(ctx, limit)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "failed to fetch orders")
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "orders": list})
	}
}
