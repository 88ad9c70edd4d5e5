package push

import "context"

// PushProvider delivers offer alerts to user devices. Delivery is
// fire-and-forget from the core's perspective: a failed send never unwinds
// the offer that triggered it.
type PushProvider interface {
	SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error)
	SendToTopic(ctx context.Context, topic string, request *NotificationRequest) (*NotificationResponse, error)
}

type NotificationRequest struct {
	Token string            `json:"token,omitempty"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
	Badge int               `json:"badge,omitempty"`
}

type NotificationResponse struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}
