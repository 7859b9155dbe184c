package routeutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	registrymedia "github.com/chirino/social-service/internal/registry/media"
	registrystore "github.com/chirino/social-service/internal/registry/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHandleError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{&registrystore.NotFoundError{Resource: "post", ID: "x"}, http.StatusNotFound},
		{&registrystore.ValidationError{Field: "content", Message: "required"}, http.StatusBadRequest},
		{&registrystore.ConflictError{Message: "post already liked", Code: "already_liked"}, http.StatusConflict},
		{&registrystore.ForbiddenError{Message: "nope"}, http.StatusForbidden},
		{&registrymedia.TooLargeError{MaxSize: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		HandleError(c, tc.err)
		require.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestHandleError_InternalDoesNotLeak(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	HandleError(c, errors.New("password=hunter2"))
	require.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query string
		want  registrystore.PageRequest
		field string
	}{
		{"", registrystore.PageRequest{Page: 1, Limit: registrystore.DefaultPageLimit}, ""},
		{"?page=3&limit=100", registrystore.PageRequest{Page: 3, Limit: 100}, ""},
		{"?page=0", registrystore.PageRequest{}, "page"},
		{"?limit=101", registrystore.PageRequest{}, "limit"},
		{"?limit=0", registrystore.PageRequest{}, "limit"},
		{"?page=abc", registrystore.PageRequest{}, "page"},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
		got, err := Page(c)
		if tc.field == "" {
			require.NoError(t, err, tc.query)
			require.Equal(t, tc.want, got)
			continue
		}
		var validation *registrystore.ValidationError
		require.ErrorAs(t, err, &validation, tc.query)
		require.Equal(t, tc.field, validation.Field)
	}
}

func TestBindError_ReportsWireFieldName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var req struct {
		Handle string `json:"handle" binding:"required,min=3,username"`
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"handle":"a b"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	err := c.ShouldBindJSON(&req)
	require.Error(t, err)
	HandleError(c, err)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"code":"validation_error","field":"handle","error":"username may only contain letters, digits, '_' or '.'"}`, w.Body.String())

	var validation *registrystore.ValidationError
	require.ErrorAs(t, BindError(errors.New("unexpected EOF")), &validation)
	require.Equal(t, "body", validation.Field)
}
