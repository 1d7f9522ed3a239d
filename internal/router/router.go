package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"evently/internal/auth"
	"evently/internal/config"
	apperrors "evently/internal/errors"
	"evently/internal/handler"
	"evently/internal/metrics"
	"evently/internal/middleware"
)

const (
	bodyLimit       = "4M"
	createEventPath = "/events/create"
	editEventPath   = "/events/:id/edit"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Event   *handler.EventHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *slog.Logger,
	jwtService *auth.JWTService,
	m *metrics.Metrics,
	owner middleware.OwnerLookup,
	h Handlers,
) {
	e.HTTPErrorHandler = apperrors.HTTPErrorHandler(logger)
	e.Validator = NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(m.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.ClientURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	// Banners are capped at 2MB; leave room for the other form fields.
	e.Use(echomw.BodyLimitWithConfig(echomw.BodyLimitConfig{
		Skipper: middleware.SkipUploadRoutes(createEventPath, editEventPath),
		Limit:   bodyLimit,
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authenticate := middleware.Authenticate(jwtService)
	ownership := middleware.RequireOwnership(owner)
	upload := middleware.UploadLimit(bodyLimit)

	// Public routes
	authGroup := e.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/resend-verification", h.Auth.ResendVerification)
	authGroup.GET("/verify-email", h.Auth.VerifyEmail)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.GET("/google", h.Auth.Google)
	authGroup.GET("/google/callback", h.Auth.GoogleCallback)

	e.GET("/events/:id/detail", h.Event.Detail)

	// Bearer routes
	me := e.Group("/me", authenticate)
	me.GET("", h.Profile.Me)
	me.POST("/edit", h.Profile.Edit)

	events := e.Group("/events", authenticate)
	events.GET("", h.Event.List)
	events.POST("/create", h.Event.Create, upload)
	events.PATCH("/:id", h.Event.ToggleBookmark)

	// Owner routes
	events.PUT("/:id/edit", h.Event.Edit, ownership, upload)
	events.DELETE("/:id", h.Event.Delete, ownership)
}

// CustomValidator wraps validator for Echo and reports failures as field
// errors keyed by their JSON names.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the request validator.
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &apperrors.ValidationError{Fields: make([]apperrors.FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, apperrors.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
