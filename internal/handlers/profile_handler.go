package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatherly/api/internal/helpers"
	"github.com/gatherly/api/internal/services"
)

// GetMyProfile returns the caller's profile, creating an empty one on first
// access.
func GetMyProfile(c *gin.Context) {
	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	profile, err := lifecycle.GetOrCreateProfile(currentActor(c))
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateMyProfile applies a partial update from multipart form fields, with
// an optional picture upload.
func UpdateMyProfile(c *gin.Context) {
	lifecycle, ok := getLifecycle(c)
	if !ok {
		return
	}

	var patch services.ProfilePatch
	if fullName, exists := c.GetPostForm("full_name"); exists {
		patch.FullName = &fullName
	}
	if bio, exists := c.GetPostForm("bio"); exists {
		patch.Bio = &bio
	}
	if location, exists := c.GetPostForm("location"); exists {
		patch.Location = &location
	}

	pictureFile, err := c.FormFile("picture")
	if err == nil {
		picturePath, err := helpers.UploadFile(c, pictureFile, "profile_pictures")
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		patch.PicturePath = &picturePath
	}

	profile, err := lifecycle.UpdateProfile(currentActor(c), patch)
	if err != nil {
		helpers.RespondWithDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
