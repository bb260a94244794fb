package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mitch8020/guess-who-backend/internal/images"
)

// region --- DTOs ---

// RegisterImageInput defines the structure for registering an uploaded
// image whose bytes already landed in blob storage.
type RegisterImageInput struct {
	StorageKey    string `json:"storageKey" binding:"required" example:"rooms/abc/cat.jpg"`
	Filename      string `json:"filename" binding:"required" example:"cat.jpg"`
	MimeType      string `json:"mimeType" binding:"required" example:"image/jpeg"`
	FileSizeBytes int64  `json:"fileSizeBytes" binding:"required,min=1"`
	SHA256        string `json:"sha256" binding:"required,len=64"`
}

// BulkRemoveImagesInput defines the bulk deactivation payload.
type BulkRemoveImagesInput struct {
	ImageIDs []string `json:"imageIds" binding:"required,min=1"`
}

// endregion

// region --- Image Handlers ---

// RegisterImage godoc
// @Summary      Register an image
// @Description  Records a new active image for the room's pool.
// @Tags         images
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Param        input body RegisterImageInput true "Image metadata"
// @Success      201  {object}  models.RoomImage
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/images [post]
func (a *API) RegisterImage(c *gin.Context) {
	var input RegisterImageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, err := a.Images.Register(c.Request.Context(), c.Param("roomId"), principalFrom(c), images.RegisterInput{
		StorageKey:    input.StorageKey,
		Filename:      input.Filename,
		MimeType:      input.MimeType,
		FileSizeBytes: input.FileSizeBytes,
		SHA256:        input.SHA256,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, image)
}

// ListImages godoc
// @Summary      List room images
// @Description  Returns the room's active image pool with the start threshold.
// @Tags         images
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Success      200  {object}  images.Listing
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/images [get]
func (a *API) ListImages(c *gin.Context) {
	listing, err := a.Images.List(c.Request.Context(), c.Param("roomId"), principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// DeleteImage godoc
// @Summary      Delete an image
// @Description  Deactivates one image. Allowed for the host or the uploader.
// @Tags         images
// @Security     BearerAuth
// @Param        roomId  path string true "Room ID"
// @Param        imageId path string true "Image ID"
// @Success      204  "No Content"
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/images/{imageId} [delete]
func (a *API) DeleteImage(c *gin.Context) {
	err := a.Images.Delete(c.Request.Context(), c.Param("roomId"), c.Param("imageId"), principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetImageURL godoc
// @Summary      Get a signed image location
// @Description  Returns the storage key and signature the download edge checks before serving bytes.
// @Tags         images
// @Produce      json
// @Security     BearerAuth
// @Param        roomId  path string true "Room ID"
// @Param        imageId path string true "Image ID"
// @Success      200  {object}  images.Location
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /rooms/{roomId}/images/{imageId}/url [get]
func (a *API) GetImageURL(c *gin.Context) {
	location, err := a.Images.SignedLocation(c.Request.Context(), c.Param("roomId"), c.Param("imageId"), principalFrom(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}

// BulkRemoveImages godoc
// @Summary      Bulk remove images
// @Description  Deactivates several images at once. Host only.
// @Tags         images
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        roomId path string true "Room ID"
// @Param        input body BulkRemoveImagesInput true "Image IDs"
// @Success      200  {object}  map[string][]string
// @Failure      403  {object}  ErrorResponse
// @Router       /rooms/{roomId}/images/bulk-remove [post]
func (a *API) BulkRemoveImages(c *gin.Context) {
	var input BulkRemoveImagesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed, err := a.Images.BulkRemove(c.Request.Context(), c.Param("roomId"), principalFrom(c), input.ImageIDs)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removedImageIds": removed})
}

// endregion
