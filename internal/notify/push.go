// Package notify creates notification records and pushes them to users'
// devices. Push delivery is best-effort: failures are logged, never
// retried, and never fail the operation that triggered them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"aquaflow/internal/domain"
	"aquaflow/internal/repository"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// pushMessage outbound push payload
type pushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushClient push transport client
type PushClient struct {
	httpClient *resty.Client
	endpoint   string
	logger     *zap.Logger
}

func NewPushClient(endpoint string, logger *zap.Logger) *PushClient {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &PushClient{
		httpClient: client,
		endpoint:   endpoint,
		logger:     logger,
	}
}

// Send delivers one push message to a device token.
func (c *PushClient) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(pushMessage{To: token, Title: title, Body: body, Data: data}).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode())
	}
	return nil
}

// Pusher is what the Notifier needs from a push transport.
type Pusher interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Notifier stores a notification record for a user and pushes it to their
// device when a token is registered.
type Notifier struct {
	notifications repository.NotificationsRepo
	users         repository.UsersRepo
	push          Pusher
	logger        *zap.Logger
}

func NewNotifier(
	notifications repository.NotificationsRepo,
	users repository.UsersRepo,
	push Pusher,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
		push:          push,
		logger:        logger,
	}
}

// NotifyUser writes the notification record, then fires the push. The
// record is the source of truth; a push failure is logged and swallowed.
func (n *Notifier) NotifyUser(ctx context.Context, uid, title, body string, data map[string]string) (*domain.Notification, error) {
	var raw json.RawMessage
	if len(data) > 0 {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notification data: %w", err)
		}
		raw = b
	}

	record := &domain.Notification{
		NotificationID: uuid.NewString(),
		UID:            uid,
		Title:          title,
		Body:           body,
		Data:           raw,
		CreatedAt:      time.Now().UTC(),
	}
	if err := n.notifications.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	user, err := n.users.GetByUID(ctx, uid)
	if err != nil {
		n.logger.Warn("Notification stored but user lookup failed, skipping push",
			zap.String("uid", uid),
			zap.Error(err),
		)
		return record, nil
	}
	if !user.PushToken.Valid {
		return record, nil
	}

	if err := n.push.Send(ctx, user.PushToken.String, title, body, data); err != nil {
		n.logger.Warn("Push delivery failed",
			zap.String("uid", uid),
			zap.String("notification_id", record.NotificationID),
			zap.Error(err),
		)
	}
	return record, nil
}
