package model

import (
	"encoding/json"
	"time"
)

// Notification is an inbox message for a user.
type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

// NotificationPreferences holds a user's channel and topic switches.  Rows are
// created lazily on first save, so DefaultPreferences applies until then.
type NotificationPreferences struct {
	UserID              string `json:"user_id"`
	PushEnabled         bool   `json:"push_enabled"`
	EmailEnabled        bool   `json:"email_enabled"`
	SMSEnabled          bool   `json:"sms_enabled"`
	WhatsAppEnabled     bool   `json:"whatsapp_enabled"`
	PromoNotifications  bool   `json:"promo_notifications"`
	PointsNotifications bool   `json:"points_notifications"`
	TierNotifications   bool   `json:"tier_notifications"`
}

// DefaultPreferences returns the settings shown before a user saves any.
func DefaultPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:              userID,
		PushEnabled:         true,
		EmailEnabled:        true,
		PromoNotifications:  true,
		PointsNotifications: true,
		TierNotifications:   true,
	}
}
