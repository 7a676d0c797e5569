package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndmitriev/auth-service/internal/usecase"
)

// RegistrationHandler exposes the account creation endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// Register creates a new account. The caller authenticates separately;
// success does not issue a token.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	_, err := h.registration.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrEmailTaken):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "A user with that email already exists."))
		case errors.Is(err, usecase.ErrPasswordPolicyViolation):
			c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: []FieldError{
				{Field: "password", Message: "Password must contain at least one letter and one number"},
			}})
		case errors.Is(err, usecase.ErrNameTooShort):
			c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: []FieldError{
				{Field: "name", Message: "Name must be at least 2 characters"},
			}})
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Registration failed. Please try again later."))
		}
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "Registration successful."})
}
