package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndmitriev/auth-service/internal/usecase"
)

// AuthHandler exposes the credential login endpoint.
type AuthHandler struct {
	auth *usecase.AuthService
}

func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login verifies credentials and returns a signed token together with the
// public account projection. Unknown email and wrong password produce the
// same response.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	token, account, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid credentials"},
		}, http.StatusInternalServerError, "Login failed. Please try again later.")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message: "Login successful.",
		Token:   token,
		User:    account.Public(),
	})
}
