package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gatherly/api/internal/helpers"
	"github.com/gatherly/api/internal/services"
)

type EventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsPublic    *bool     `json:"is_public"`
}

type EventPatchRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	IsPublic    *bool      `json:"is_public"`
}

type RSVPRequest struct {
	Status string `json:"status"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	event, err := lifecycle.CreateEvent(currentActor(c), services.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsPublic:    isPublic,
	})
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Event created successfully.",
		"event":   event,
	})
}

func GetEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "Event")
	if !ok {
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	event, err := lifecycle.GetEvent(currentActor(c), eventID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	attendees, err := lifecycle.AttendeeCount(eventID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"event":          event,
		"attendee_count": attendees,
		"is_upcoming":    event.IsUpcoming(now),
		"is_ongoing":     event.IsOngoing(now),
	})
}

func ListEvents(c *gin.Context) {
	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	page, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	filter := services.EventFilter{
		Location: c.Query("location"),
		Page:     page,
		Limit:    limit,
	}
	if raw := c.Query("is_public"); raw != "" {
		isPublic := raw == "true"
		filter.IsPublic = &isPublic
	}
	if raw := c.Query("organizer"); raw != "" {
		organizerID, err := uuid.Parse(raw)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid organizer filter.")
			return
		}
		filter.OrganizerID = organizerID
	}

	events, total, err := lifecycle.ListEvents(currentActor(c), filter)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
	})
}

func UpdateEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "Event")
	if !ok {
		return
	}

	var req EventPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	event, err := lifecycle.UpdateEvent(currentActor(c), eventID, services.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event updated successfully.",
		"event":   event,
	})
}

func DeleteEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "Event")
	if !ok {
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	if err := lifecycle.DeleteEvent(currentActor(c), eventID); err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Event deleted successfully.",
	})
}

// RSVPEvent upserts the caller's RSVP: 201 on first response, 200 when an
// existing response's status changes.
func RSVPEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "Event")
	if !ok {
		return
	}

	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if req.Status == "" {
		req.Status = "going"
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	rsvp, created, err := lifecycle.SetRSVP(currentActor(c), eventID, req.Status)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}
	c.JSON(statusCode, gin.H{"rsvp": rsvp})
}

func ListEventRSVPs(c *gin.Context) {
	eventID, ok := parseIDParam(c, "Event")
	if !ok {
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	rsvps, err := lifecycle.ListEventRSVPs(currentActor(c), eventID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rsvps": rsvps})
}

func ReviewEvent(c *gin.Context) {
	eventID, ok := parseIDParam(c, "Event")
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

	review, err := lifecycle.AddReview(currentActor(c), eventID, req.Rating, req.Comment)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func ListEventReviews(c *gin.Context) {
	eventID, ok := parseIDParam(c, "Event")
	if !ok {
		return
	}

	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	reviews, err := lifecycle.ListEventReviews(currentActor(c), eventID)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}
