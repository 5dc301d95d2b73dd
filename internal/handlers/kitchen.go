package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"impulse-backend/internal/middleware"
	"impulse-backend/internal/models"
	"impulse-backend/internal/orders"
)

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// KitchenOrders lists the board for the dashboard, optionally filtered by
// status, newest first.
func KitchenOrders(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /kitchen/orders"
		defer handlePanic(c, route)

		status := models.OrderStatus(c.Query("status"))
		if status != "" && !models.IsValidStatus(status) {
			respondWithError(c, http.StatusBadRequest, route, "invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		list, err := svc.ListKitchenOrders(ctx, status)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "failed to fetch orders")
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "orders": list})
	}
}

// UpdateKitchenOrderStatus applies a manual status change. Only the single
// legal successor (or a no-op re-application) is accepted.
func UpdateKitchenOrderStatus(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /kitchen/orders/:orderNumber/status"
		defer handlePanic(c, route)

		success := false
		defer func() { middleware.RecordOrderOperation("status_update", success) }()

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		target := models.OrderStatus(req.Status)
		if !models.IsValidStatus(target) {
			respondWithError(c, http.StatusBadRequest, route, "invalid status")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := svc.AdvanceOrderStatus(ctx, c.Param("orderNumber"), target)
		if err != nil {
			var invalid *models.InvalidTransitionError
			switch {
			case errors.Is(err, models.ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "order not found"})
			case errors.As(err, &invalid):
				c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": invalid.Error()})
			case errors.Is(err, models.ErrStatusConflict):
				c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "order status changed, reload and retry"})
			default:
				respondWithError(c, http.StatusInternalServerError, route, "failed to update order status")
			}
			return
		}

		success = true
		c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
	}
}

func KitchenStats(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /kitchen/stats"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		stats, err := svc.GetKitchenStats(ctx)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "failed to fetch stats")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":              true,
			"pending":         stats.Pending,
			"preparing":       stats.Preparing,
			"ready":           stats.Ready,
			"onTheWay":        stats.OnTheWay,
			"averagePrepTime": stats.AveragePrepMinutes,
		})
	}
}
