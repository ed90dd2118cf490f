package handlers

import (
	"net/http"

	"footyreserve/middleware"
	payoutService "footyreserve/services/payout"
	"footyreserve/utils"

	"github.com/gin-gonic/gin"
)

// PayoutSvc is wired in main before the router starts.
var PayoutSvc *payoutService.Orchestrator

// InitiatePayout triggers the payout protocol for a fully paid match.
func InitiatePayout(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	ref, amount, err := PayoutSvc.AdminInitiate(c.Request.Context(), adminID, c.Param("matchId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payoutRef": ref,
		"amount":    amount,
	})
}

// SetupPayoutAccount creates a connected account for the match's
// payout destination and returns the onboarding URL.
func SetupPayoutAccount(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	accountID, onboardingURL, err := PayoutSvc.SetupAccount(c.Request.Context(), adminID, c.Param("matchId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accountId":     accountID,
		"onboardingUrl": onboardingURL,
	})
}
