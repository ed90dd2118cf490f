package handlers

import (
	"net/http"

	"footyreserve/middleware"
	matchService "footyreserve/services/match"
	"footyreserve/utils"

	"github.com/gin-gonic/gin"
)

// MatchSvc is wired in main before the router starts.
var MatchSvc matchService.MatchService

// CreateMatch creates a new match owned by the authenticated admin.
func CreateMatch(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var input matchService.CreateMatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	m, err := MatchSvc.CreateMatch(c.Request.Context(), adminID, input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// UpdateMatch edits mutable match fields.
func UpdateMatch(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var input matchService.UpdateMatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	m, err := MatchSvc.UpdateMatch(c.Request.Context(), adminID, c.Param("matchId"), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetMatch returns a match by id.
func GetMatch(c *gin.Context) {
	m, err := MatchSvc.GetMatch(c.Request.Context(), c.Param("matchId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// AdminUpcomingMatches lists the admin's upcoming matches.
func AdminUpcomingMatches(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	matches, err := MatchSvc.AdminUpcomingMatches(c.Request.Context(), adminID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// CancelMatch cancels a match that has not been paid up.
func CancelMatch(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := MatchSvc.CancelMatch(c.Request.Context(), adminID, c.Param("matchId")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match cancelled"})
}

// RemovePlayer kicks an unpaid player and blacklists them.
func RemovePlayer(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := MatchSvc.RemovePlayer(c.Request.Context(), adminID, c.Param("matchId"), c.Param("userId")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "player removed"})
}

// MatchRoster lists the match's bookings.
func MatchRoster(c *gin.Context) {
	bookings, err := MatchSvc.Roster(c.Request.Context(), c.Param("matchId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// MatchFinances returns the admin-facing financial summary.
func MatchFinances(c *gin.Context) {
	adminID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	fin, err := MatchSvc.MatchFinances(c.Request.Context(), adminID, c.Param("matchId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fin)
}
