package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatherly/api/internal/helpers"
	"github.com/gatherly/api/internal/policy"
	"github.com/gatherly/api/internal/services"
)

func getLifecycle(c *gin.Context) (*services.Lifecycle, bool) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return nil, false
	}
	return services.NewLifecycle(db.(*gorm.DB), services.OutboxSink{}), true
}

func currentActor(c *gin.Context) policy.Actor {
	userID, exists := c.Get("user_id")
	if !exists {
		return policy.Actor{}
	}
	return policy.Actor{ID: userID.(uuid.UUID), Authenticated: true}
}

func parseIDParam(c *gin.Context, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, resource+" not found")
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (int, int, bool) {
	page, err := helpers.StringToInt(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return 0, 0, false
	}
	limit, err := helpers.StringToInt(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return 0, 0, false
	}
	return page, limit, true
}
