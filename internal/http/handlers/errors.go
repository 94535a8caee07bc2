package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"shibads/internal/service"

	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrInvalidRequest, http.StatusBadRequest},
	{service.ErrTokenMissing, http.StatusBadRequest},
	{service.ErrInvalidAmount, http.StatusBadRequest},
	{service.ErrInsufficientBalance, http.StatusBadRequest},
	{service.ErrBelowMinimum, http.StatusBadRequest},
	{service.ErrNotMember, http.StatusBadRequest},
	{service.ErrInvalidInitData, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrBanned, http.StatusForbidden},
	{service.ErrQuotaExceeded, http.StatusForbidden},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrMissionNotFound, http.StatusNotFound},
	{service.ErrTokenExpired, http.StatusRequestTimeout},
	{service.ErrTokenNotFound, http.StatusConflict},
	{service.ErrAlreadyRegistered, http.StatusConflict},
	{service.ErrMissionCompleted, http.StatusConflict},
	{service.ErrRateLimited, http.StatusTooManyRequests},
}

// statusFor maps a service error to its HTTP status. Anything unknown is a 500.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

// failErr writes err using the status table. Internal errors are logged and
// replaced with a generic message.
func (h *Handler) failErr(c *gin.Context, reqType string, userID int64, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "type", reqType, "user_id", userID, "error", err)
		fail(c, status, "Internal server error.")
		return
	}

	h.log.Debug("request rejected", "type", reqType, "user_id", userID, "status", status, "error", err)
	var rl *service.RateLimitError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(rl.Seconds()))
		c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": err.Error(), "retry_after": rl.Seconds()})
		return
	}
	fail(c, status, err.Error())
}
