package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"

	apperrors "evently/internal/errors"
	"evently/internal/logger"
)

func TestUploadLimit(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler(logger.Discard())
	e.Use(echomw.BodyLimitWithConfig(echomw.BodyLimitConfig{
		Skipper: SkipUploadRoutes("/upload"),
		Limit:   "1K",
	}))
	read := func(c echo.Context) error {
		if _, err := io.ReadAll(c.Request().Body); err != nil {
			return err
		}
		return c.String(http.StatusOK, "ok")
	}
	e.POST("/upload", read, UploadLimit("1K"))
	e.POST("/other", read)

	tests := []struct {
		name        string
		path        string
		size        int
		wantStatus  int
		wantMessage string
	}{
		{name: "upload within limit", path: "/upload", size: 512, wantStatus: http.StatusOK},
		{name: "upload over limit", path: "/upload", size: 4096, wantStatus: http.StatusBadRequest, wantMessage: apperrors.ErrFileTooLarge.Error()},
		{name: "other route over limit", path: "/other", size: 4096, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewReader(make([]byte, tt.size)))
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, message(t, rec))
			}
		})
	}
}
