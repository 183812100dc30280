package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/media"
	"github.com/gin-gonic/gin"
)

type ImageUploader interface {
	UploadImage(ctx context.Context, r io.Reader) (string, error)
}

type ImagesHandler struct {
	uploader ImageUploader
}

func NewImagesHandler(uploader ImageUploader) *ImagesHandler {
	return &ImagesHandler{uploader: uploader}
}

// Upload takes a multipart "image" field and returns the stored URL, which
// callers then send as the product's image.
func (h *ImagesHandler) Upload(ctx *gin.Context) {
	fh, err := ctx.FormFile("image")
	if err != nil {
		RespondBadRequest(ctx, "Multipart field \"image\" is required", nil)
		return
	}

	if fh.Size > media.MaxImageBytes {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "image_too_large", "Image must be at most 5 MB.", nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		RespondBadRequest(ctx, "Could not read upload", nil)
		return
	}
	defer f.Close()

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 30*time.Second)
	defer cancel()

	url, err := h.uploader.UploadImage(cctx, f)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			RespondError(ctx, http.StatusUnsupportedMediaType, "unsupported_media_type", "Only JPEG, PNG, WebP and GIF images are accepted.", nil)
		case errors.Is(err, media.ErrTooLarge):
			RespondError(ctx, http.StatusRequestEntityTooLarge, "image_too_large", "Image must be at most 5 MB.", nil)
		case errors.Is(err, media.ErrEmpty):
			RespondBadRequest(ctx, "Upload is empty", nil)
		default:
			_ = ctx.Error(err)
			RespondBadGateway(ctx, "storage_unavailable", "Could not store the image.")
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"url": url})
}
