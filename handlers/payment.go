package handlers

import (
	"net/http"
	"time"

	"footyreserve/gateway"
	"footyreserve/middleware"
	reservationService "footyreserve/services/reservation"
	"footyreserve/services/settlement"
	"footyreserve/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Wired in main before the router starts.
var (
	Gateway       gateway.PaymentGateway
	SettlementSvc *settlement.Processor
)

// InitiatePayment reserves spots and creates a payment intent for them.
func InitiatePayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var input reservationService.PaymentInitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	res, err := ReservationSvc.InitiatePayment(c.Request.Context(), userID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelPayment abandons a pending payment and releases its spots.
func CancelPayment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := ReservationSvc.CancelPayment(c.Request.Context(), userID, c.Param("paymentId")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment cancelled"})
}

// PaymentStatus returns the current status of the caller's payment.
func PaymentStatus(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	p, err := ReservationSvc.PaymentStatus(c.Request.Context(), userID, c.Param("paymentId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paymentId": p.ID,
		"status":    p.Status,
		"amount":    p.Amount,
	})
}

// StripeWebhook receives provider events. The signature is verified
// against the raw body; a bad signature is rejected with 400. Verified
// events are always acknowledged with 200 so the provider does not
// retry events our state machine has already resolved as no-ops;
// processing failures are logged for the periodic sweep and manual
// replay to pick up.
func StripeWebhook(c *gin.Context) {
	logger := utils.GetLogger()

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := Gateway.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	// Fast-path dedup of redelivered events. Best effort only: the
	// settlement state machine is idempotent without it.
	if event.ID != "" {
		fresh, err := utils.GetCacheClient().SetNX(c.Request.Context(),
			"stripe_evt_"+event.ID, 1, 24*time.Hour).Result()
		if err == nil && !fresh {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
	}

	if err := SettlementSvc.Process(c.Request.Context(), event); err != nil {
		logger.Error("webhook processing failed",
			zap.String("eventType", event.Type),
			zap.String("intentId", event.IntentID),
			zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
