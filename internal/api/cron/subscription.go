package cron

import (
	"net/http"
	"time"

	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/channelgate/channelgate/internal/service"
	"github.com/gin-gonic/gin"
)

// SubscriptionCronHandler exposes the reconciliation cycle for manual or
// externally scheduled triggering. The cycle shares its single-flight guard
// with the internal timer, so a trigger during a running cycle is rejected.
type SubscriptionCronHandler struct {
	reconciler *service.Reconciler
	logger     *logger.Logger
}

// NewSubscriptionCronHandler creates a new subscription cron handler
func NewSubscriptionCronHandler(
	reconciler *service.Reconciler,
	logger *logger.Logger,
) *SubscriptionCronHandler {
	return &SubscriptionCronHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// TriggerReconcile runs one reconciliation cycle
func (h *SubscriptionCronHandler) TriggerReconcile(c *gin.Context) {
	h.logger.Infow("starting reconcile cron job", "time", time.Now().UTC().Format(time.RFC3339))

	res, err := h.reconciler.RunCycle(c.Request.Context())
	if err != nil {
		if ierr.Is(err, service.ErrCycleInProgress) {
			c.JSON(http.StatusConflict, ierr.NewErrorResponse(err))
			return
		}
		h.logger.Errorw("reconcile cron job failed", "error", err)
		c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
		return
	}

	h.logger.Infow("completed reconcile cron job",
		"expired", res.Expired, "retired", res.Retired, "failed", res.Failed)
	c.JSON(http.StatusOK, res)
}
