package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gatherly/api/internal/helpers"
	"github.com/gatherly/api/internal/services"
)

func ListRSVPs(c *gin.Context) {
	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	filter := services.RSVPFilter{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	}
	if raw := c.Query("event"); raw != "" {
		eventID, err := uuid.Parse(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event filter.")
			return
		}
		filter.EventID = eventID
	}

	rsvps, total, err := lifecycle.ListRSVPs(currentActor(c), filter)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving RSVPs.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rsvps": rsvps,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func UpdateRSVP(c *gin.Context) {
	rsvpID, ok := parseIDParam(c, "RSVP")
	if !ok {
		return
	}

	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	rsvp, err := lifecycle.UpdateRSVP(currentActor(c), rsvpID, req.Status)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rsvp": rsvp})
}

func DeleteRSVP(c *gin.Context) {
	rsvpID, ok := parseIDParam(c, "RSVP")
	if !ok {
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	if err := lifecycle.DeleteRSVP(currentActor(c), rsvpID); err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "RSVP deleted successfully."})
}
