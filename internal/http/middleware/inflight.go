package middleware

import (
	"net/http"
	"strconv"

	"github.com/edirooss/taskslot/internal/slotpool"
	"github.com/gin-gonic/gin"
)

// LimitInFlight caps the number of requests being processed at once.
// Admission runs through a slot pool: a request that gets no slot is
// rejected with HTTP 429 instead of queueing, so the status surface stays
// responsive while a soak floods the process.
//
// Example usage:
//
//	router.Use(LimitInFlight(64))
func LimitInFlight(max int) gin.HandlerFunc {
	pool := slotpool.NewChan(max)

	return func(c *gin.Context) {
		slot, ok := pool.TryAcquire()
		if !ok {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many concurrent requests",
			})
			return
		}
		defer pool.Release(slot)

		c.Header("X-InFlight-Slot", strconv.Itoa(slot))
		c.Next()
	}
}
