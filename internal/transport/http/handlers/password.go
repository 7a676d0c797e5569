package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndmitriev/auth-service/internal/usecase"
)

const resetRequestAck = "If that email is registered, a reset link has been sent."

// PasswordHandler exposes the password reset endpoints.
type PasswordHandler struct {
	reset *usecase.PasswordResetService
}

func NewPasswordHandler(reset *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{reset: reset}
}

// ForgotPassword starts the reset flow. The acknowledgment is identical
// whether the email is registered or not.
func (h *PasswordHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Could not process the request. Please try again later."))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: resetRequestAck})
}

// ResetPassword consumes a reset token and installs the new password.
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.reset.ConfirmReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "Invalid or expired reset token."},
			{Err: usecase.ErrNewPasswordInvalid, Status: http.StatusBadRequest, Message: "Password must contain at least one letter and one number"},
		}, http.StatusInternalServerError, "Could not reset the password. Please try again later.")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset successfully."})
}
