package image

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"imagegallery/internal/middleware"
	"imagegallery/internal/pkg/response"
)

// multipartOverhead is headroom for the text fields and boundaries on top of the file itself.
const multipartOverhead = 1 << 20

// Handler maps the gallery's HTTP endpoints onto the Service.
// Everything except Gallery requires an authenticated caller.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Gallery godoc
// @Summary Public gallery
// @Description All images, newest first. Optional owner_id narrows to one user.
// @Tags Images
// @Produce json
// @Param owner_id query int false "Owner user id"
// @Success 200 {object} map[string]interface{}
// @Failure 400,500 {object} map[string]interface{}
// @Router /gallery [get]
func (h *Handler) Gallery(c *gin.Context) {
	var filter ListFilter
	if raw := c.Query("owner_id"); raw != "" {
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ownerID <= 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid owner_id")
			return
		}
		filter.OwnerID = &ownerID
	}
	h.list(c, filter)
}

// ListMine godoc
// @Summary My images
// @Tags Images
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401,500 {object} map[string]interface{}
// @Router /images [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := middleware.MustUserID(c)
	if !ok {
		return
	}
	h.list(c, ListFilter{OwnerID: &userID})
}

func (h *Handler) list(c *gin.Context, filter ListFilter) {
	images, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponses(images))
}

// CreateForm godoc
// @Summary Upload form settings
// @Description Returns the accepted types, the size limit and the title limit.
// @Tags Images
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PolicyResponse
// @Router /images/create [get]
func (h *Handler) CreateForm(c *gin.Context) {
	if _, ok := middleware.MustUserID(c); !ok {
		return
	}
	response.Success(c, http.StatusOK, h.service.Policy().Describe())
}

// Create godoc
// @Summary Upload an image
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title (max 255)"
// @Param description formData string false "Description"
// @Param image formData file true "Image file"
// @Success 201 {object} map[string]interface{}
// @Failure 400,401,413,500 {object} map[string]interface{}
// @Router /images [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := middleware.MustUserID(c)
	if !ok {
		return
	}

	in, file, ok := h.bindForm(c)
	if !ok {
		return
	}

	img, err := h.service.Create(c.Request.Context(), userID, in, file)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ToResponse(img))
}

// Edit godoc
// @Summary Image for the edit form
// @Tags Images
// @Produce json
// @Security BearerAuth
// @Param id path int true "Image ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,403,404 {object} map[string]interface{}
// @Router /images/{id}/edit [get]
func (h *Handler) Edit(c *gin.Context) {
	userID, ok := middleware.MustUserID(c)
	if !ok {
		return
	}
	id, ok := imageID(c)
	if !ok {
		return
	}

	img, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(img))
}

// Update godoc
// @Summary Edit an image
// @Description Title and description are always replaced. A new image file is optional.
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Image ID"
// @Param title formData string true "Title (max 255)"
// @Param description formData string false "Description"
// @Param image formData file false "Replacement image"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,403,404,413,500 {object} map[string]interface{}
// @Router /images/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, ok := middleware.MustUserID(c)
	if !ok {
		return
	}
	id, ok := imageID(c)
	if !ok {
		return
	}

	in, file, ok := h.bindForm(c)
	if !ok {
		return
	}

	img, err := h.service.Update(c.Request.Context(), userID, id, in, file)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(img))
}

// Delete godoc
// @Summary Delete an image (file + record)
// @Tags Images
// @Produce json
// @Security BearerAuth
// @Param id path int true "Image ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,403,404,500 {object} map[string]interface{}
// @Router /images/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := middleware.MustUserID(c)
	if !ok {
		return
	}
	id, ok := imageID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Image deleted successfully")
}

// bindForm reads title, description and the optional "image" file.
func (h *Handler) bindForm(c *gin.Context) (CreateInput, *FileInput, bool) {
	maxSize := h.service.Policy().MaxSize
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	var in CreateInput
	if err := c.ShouldBind(&in); err != nil {
		h.bindError(c, err)
		return in, nil, false
	}

	fileHeader, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return in, nil, true
	}
	if err != nil {
		h.bindError(c, err)
		return in, nil, false
	}

	if fileHeader.Size > maxSize {
		// the policy rejects it on the declared size, no need to buffer it
		return in, &FileInput{Filename: fileHeader.Filename, Size: fileHeader.Size}, true
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.bindError(c, err)
		return in, nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		h.bindError(c, err)
		return in, nil, false
	}
	return in, &FileInput{Filename: fileHeader.Filename, Data: data}, true
}

func (h *Handler) bindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Request body is too large")
		return
	}
	response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid form data")
}

func (h *Handler) fail(c *gin.Context, err error) {
	var (
		verr *ValidationError
		serr *StorageError
	)
	switch {
	case errors.As(err, &verr):
		if verr.TooLargeOnly() {
			response.ErrorWithDetails(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Image is too large", verr.Fields)
			return
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "The given data was invalid", verr.Fields)
	case errors.Is(err, ErrImageNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Image not found")
	case errors.Is(err, ErrNotOwner):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You do not own this image")
	case errors.Is(err, ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.As(err, &serr):
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to store image")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func imageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", fmt.Sprintf("Invalid image id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}
