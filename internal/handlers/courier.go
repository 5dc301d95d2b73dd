package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"impulse-backend/internal/middleware"
	"impulse-backend/internal/orders"
)

type courierLocationRequest struct {
	OrderNumber string   `json:"orderNumber" binding:"required"`
	Token       string   `json:"token" binding:"required"`
	Lat         *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng         *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
	Accuracy    *float64 `json:"accuracy" binding:"required,gte=0"`
}

// CourierLocation ingests one courier position sample. Saving the ping and
// refreshing the order's last-location cache is the contract of this
// endpoint; the automatic on-the-way trigger behind it never fails the
// request.
func CourierLocation(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/courier/location"
		defer handlePanic(c, route)

		success := false
		defer func() { middleware.RecordOrderOperation("courier_ping", success) }()

		var req courierLocationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := svc.FindByCourierToken(ctx, req.OrderNumber, req.Token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid order number or token"})
			return
		}

		if _, err := svc.IngestLocation(ctx, order.ID, *req.Lat, *req.Lng, *req.Accuracy); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "failed to save location")
			return
		}

		success = true
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
