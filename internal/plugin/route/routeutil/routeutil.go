// Package routeutil holds the request parsing and error mapping shared by the
// HTTP route areas.
package routeutil

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	registrymedia "github.com/chirino/social-service/internal/registry/media"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// HandleError writes the HTTP response for err. Unclassified errors are logged
// and answered with a generic 500.
func HandleError(c *gin.Context, err error) {
	var notFound *registrystore.NotFoundError
	var validation *registrystore.ValidationError
	var conflict *registrystore.ConflictError
	var forbidden *registrystore.ForbiddenError
	var tooLarge *registrymedia.TooLargeError
	var fields validator.ValidationErrors

	if errors.As(err, &fields) {
		err = BindError(fields)
	}
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": validation.Message, "field": validation.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"code": conflict.Code, "error": err.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "error": err.Error()})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": "too_large", "error": err.Error()})
	default:
		log.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// BadRequest answers 400 with a validation error for field.
func BadRequest(c *gin.Context, field, message string) {
	HandleError(c, &registrystore.ValidationError{Field: field, Message: message})
}

// Page parses the page and limit query parameters.
func Page(c *gin.Context) (registrystore.PageRequest, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return registrystore.PageRequest{}, err
	}
	limit, err := queryInt(c, "limit", registrystore.DefaultPageLimit)
	if err != nil {
		return registrystore.PageRequest{}, err
	}
	return registrystore.NewPageRequest(page, limit)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &registrystore.ValidationError{Field: key, Message: "must be an integer"}
	}
	return i, nil
}

// ParamUUID parses a uuid path parameter. A malformed id is reported as not
// found for resource.
func ParamUUID(c *gin.Context, name, resource string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &registrystore.NotFoundError{Resource: resource, ID: raw}
	}
	return id, nil
}

// QueryUUID parses an optional uuid query parameter.
func QueryUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &registrystore.ValidationError{Field: key, Message: "must be a valid id"}
	}
	return &id, nil
}

// PostsPage is the response shape of every paged post list.
type PostsPage struct {
	Posts      []registrystore.PostView `json:"posts"`
	Pagination registrystore.PageInfo   `json:"pagination"`
}

// EncodeUpload stores an uploaded file through the media encoder and returns its reference.
func EncodeUpload(ctx context.Context, enc registrymedia.Encoder, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return enc.Encode(ctx, f, ContentType(fh))
}

// ContentType returns the declared media type of an uploaded part, without parameters.
func ContentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

// IsImage reports whether an uploaded part declares an image media type.
func IsImage(fh *multipart.FileHeader) bool {
	return strings.HasPrefix(ContentType(fh), "image/")
}

// IsMultipart reports whether the request body is a multipart form.
func IsMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}
