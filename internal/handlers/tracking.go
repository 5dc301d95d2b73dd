package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"impulse-backend/internal/orders"
)

// TrackOrder serves the customer tracking endpoint. Access is granted by the
// per-order customer token; a wrong token is answered exactly like an
// unknown order.
func TrackOrder(svc *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/track/:orderNumber"
		defer handlePanic(c, route)

		orderNumber := c.Param("orderNumber")
		token := c.Query("token")
		if token == "" {
			respondWithError(c, http.StatusBadRequest, route, "missing or invalid token")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := svc.FindByCustomerToken(ctx, orderNumber, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid order number or token"})
			return
		}

		location, err := svc.LatestLocation(ctx, order.ID)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "failed to fetch tracking data")
			return
		}
		if location == nil {
			c.JSON(http.StatusOK, gin.H{
				"ok":          false,
				"orderStatus": order.OrderStatus,
				"message":     "no location data available yet",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":          true,
			"orderStatus": order.OrderStatus,
			"location": gin.H{
				"lat":       location.Latitude,
				"lng":       location.Longitude,
				"accuracy":  location.Accuracy,
				"updatedAt": location.CreatedAt.Format(time.RFC3339),
			},
		})
	}
}
