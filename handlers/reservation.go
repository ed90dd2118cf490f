package handlers

import (
	"net/http"

	"footyreserve/middleware"
	reservationService "footyreserve/services/reservation"
	"footyreserve/utils"

	"github.com/gin-gonic/gin"
)

// ReservationSvc is wired in main before the router starts.
var ReservationSvc reservationService.ReservationService

// JoinMatch registers the authenticated user on a match roster.
func JoinMatch(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var input reservationService.JoinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	booking, err := ReservationSvc.Join(c.Request.Context(), userID, c.Param("matchId"), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// UserUpcomingMatches lists the authenticated user's upcoming matches.
func UserUpcomingMatches(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	matches, err := ReservationSvc.UserUpcomingMatches(c.Request.Context(), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
