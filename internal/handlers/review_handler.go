package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gatherly/api/internal/helpers"
	"github.com/gatherly/api/internal/services"
)

func ListReviews(c *gin.Context) {
	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	filter := services.ReviewFilter{
		Page:  page,
		Limit: limit,
	}
	if raw := c.Query("event"); raw != "" {
		eventID, err := uuid.Parse(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid event filter.")
			return
		}
		filter.EventID = eventID
	}
	if raw := c.Query("rating"); raw != "" {
		rating, err := helpers.StringToInt(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid rating filter.")
			return
		}
		filter.Rating = rating
	}

	reviews, total, err := lifecycle.ListReviews(currentActor(c), filter)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving reviews.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func UpdateReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "Review")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	review, err := lifecycle.UpdateReview(currentActor(c), reviewID, req.Rating, req.Comment)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"review": review})
}

func DeleteReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "Review")
	if !ok {
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	if err := lifecycle.DeleteReview(currentActor(c), reviewID); err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully."})
}
