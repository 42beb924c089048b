package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/api/middleware"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
)

var errBadBody = apperr.InvalidInput("invalid request body")

// respondError writes {"error": reason} with the status of err's kind.
// Reasons of unclassified errors are never echoed to the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"request_id", middleware.GetRequestID(c),
			"path", c.FullPath(),
			"error", err,
		)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.ReasonOf(err)})
}

// bindJSON decodes the body into obj. Struct tag violations are reported
// as validationReason; an empty validationReason leaves the check to the
// service, which owns the stable rejection reasons.
func bindJSON(c *gin.Context, obj any, validationReason string) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		if validationReason == "" {
			return nil
		}
		return apperr.InvalidInput(validationReason)
	}
	return errBadBody
}

// userID resolves the authenticated caller or writes a 401
func userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return id, true
}
