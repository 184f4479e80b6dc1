package httpapi

import (
	"net/http"

	"aquaflow/internal/repository"

	"go.uber.org/zap"
)

// NotificationsHandler per-user notification endpoints
type NotificationsHandler struct {
	notifications repository.NotificationsRepo
	logger        *zap.Logger
}

func NewNotificationsHandler(notifications repository.NotificationsRepo, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, logger: logger}
}

// List handles GET /api/v1/users/{uid}/notifications. An unknown user just
// has no notifications; the response is an empty list, not an error.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request, uid string) {
	notifications, err := h.notifications.ListByUser(r.Context(), uid)
	if err != nil {
		h.logger.Error("Failed to list notifications",
			zap.String("uid", uid),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list notifications"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(notifications))
}
