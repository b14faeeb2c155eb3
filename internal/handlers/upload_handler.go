package handlers

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront/internal/middleware"
)

// ImageStore persists uploaded product images and returns their public path.
type ImageStore interface {
	PutImage(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// UploadHandler handles product image uploads.
type UploadHandler struct {
	store ImageStore
}

// NewUploadHandler creates a new UploadHandler. A nil store disables uploads.
func NewUploadHandler(store ImageStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// RegisterRoutes registers the upload route. auth authenticates the caller.
func (h *UploadHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/upload", auth, middleware.AdminOnly(), h.HandleUpload)
}

func uploadError(c *fiber.Ctx, status int, message string) error {
	kind := "ValidationError"
	if status == fiber.StatusServiceUnavailable {
		kind = "Unavailable"
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   kind,
	})
}

// HandleUpload stores the multipart "image" field under a fresh name.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	if h.store == nil {
		return uploadError(c, fiber.StatusServiceUnavailable, "Image uploads are not configured")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return uploadError(c, fiber.StatusBadRequest, "No image provided")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, ok := imageTypes[ext]
	if !ok || !strings.EqualFold(file.Header.Get(fiber.HeaderContentType), contentType) {
		return uploadError(c, fiber.StatusBadRequest, "Images only (jpeg, png, webp)")
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer src.Close()

	path, err := h.store.PutImage(c.UserContext(), uuid.NewString()+ext, contentType, src, file.Size)
	if err != nil {
		return respondError(c, err)
	}
	log.WithField("image", path).Info("image uploaded")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Image uploaded successfully",
		"image":   path,
	})
}
