package handler

import (
	"net/http"
	"strconv"

	"github.com/edirooss/taskslot/internal/service"
	"github.com/edirooss/taskslot/internal/slottrace"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusHandler serves the soak introspection surface.
type StatusHandler struct {
	log     *zap.Logger
	svc     *service.StatusService
	journal *slottrace.Journal
}

// NewStatusHandler constructs a StatusHandler instance.
func NewStatusHandler(log *zap.Logger, svc *service.StatusService, journal *slottrace.Journal) *StatusHandler {
	return &StatusHandler{
		log:     log.Named("status"),
		svc:     svc,
		journal: journal,
	}
}

// GetStatus serves the cached soak snapshot.
// Optional query to bypass the cache for diagnostics: ?force=1
func (h *StatusHandler) GetStatus(c *gin.Context) {
	if c.Query("force") == "1" {
		h.svc.Invalidate()
	}

	res, err := h.svc.Get(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	// Friendly cache headers for debugging/observability
	c.Header("X-Cache", map[bool]string{true: "HIT", false: "MISS"}[res.CacheHit])
	c.Header("X-Status-Generated-At", strconv.FormatInt(res.GeneratedAt.UnixMilli(), 10))

	c.JSON(http.StatusOK, res.Data)
}

// SlotActivity is the per-slot journal view.
type SlotActivity struct {
	Slot   int              `json:"slot"`
	Total  uint64           `json:"total"`
	Recent []slottrace.Hold `json:"recent"`
}

// GetSlots serves recent hold records for every slot.
// ?n= bounds records per slot (default 20, 0 = all retained).
func (h *StatusHandler) GetSlots(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("n", "20"))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "n must be a non-negative integer"})
		return
	}

	out := make([]SlotActivity, h.journal.Capacity())
	for slot := range out {
		out[slot] = SlotActivity{
			Slot:   slot,
			Total:  h.journal.Total(slot),
			Recent: h.journal.Recent(slot, n),
		}
	}

	c.Header("X-Total-Count", strconv.Itoa(len(out)))
	c.JSON(http.StatusOK, out)
}
