package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// NotificationRepo manages the inbox and the notification preferences.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// List returns the user's notifications, newest first.
func (r *NotificationRepo) List(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, type, title, message, data, is_read, created_at
		 FROM notifications WHERE user_id=? ORDER BY created_at DESC LIMIT ?`, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var (
			n    model.Notification
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			n.Data = json.RawMessage(data)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags the given notifications as read.  With no ids every unread
// notification of the user is marked.  Ids belonging to other users are
// ignored.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	q := "UPDATE notifications SET is_read=TRUE WHERE user_id=? AND is_read=FALSE"
	args := []interface{}{userID}
	if len(ids) > 0 {
		q += " AND id IN (?" + strings.Repeat(",?", len(ids)-1) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Preferences returns the saved preferences or the defaults when the user
// never saved any.
func (r *NotificationRepo) Preferences(ctx context.Context, userID string) (model.NotificationPreferences, error) {
	p := model.NotificationPreferences{UserID: userID}
	err := r.DB.QueryRowContext(ctx,
		`SELECT push_enabled, email_enabled, sms_enabled, whatsapp_enabled,
		 promo_notifications, points_notifications, tier_notifications
		 FROM notification_preferences WHERE user_id=?`, userID).
		Scan(&p.PushEnabled, &p.EmailEnabled, &p.SMSEnabled, &p.WhatsAppEnabled,
			&p.PromoNotifications, &p.PointsNotifications, &p.TierNotifications)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultPreferences(userID), nil
	}
	return p, err
}

// SavePreferences upserts the full preference row.  Turning WhatsApp on
// records the opt-in date the first time.
func (r *NotificationRepo) SavePreferences(ctx context.Context, p model.NotificationPreferences) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO notification_preferences (user_id, push_enabled, email_enabled, sms_enabled,
		 whatsapp_enabled, whatsapp_opt_in_date, promo_notifications, points_notifications, tier_notifications)
		 VALUES (?,?,?,?,?,IF(?, UTC_TIMESTAMP(), NULL),?,?,?)
		 ON DUPLICATE KEY UPDATE push_enabled=VALUES(push_enabled), email_enabled=VALUES(email_enabled),
		 sms_enabled=VALUES(sms_enabled), whatsapp_enabled=VALUES(whatsapp_enabled),
		 whatsapp_opt_in_date=IF(VALUES(whatsapp_enabled), COALESCE(whatsapp_opt_in_date, UTC_TIMESTAMP()), whatsapp_opt_in_date),
		 promo_notifications=VALUES(promo_notifications), points_notifications=VALUES(points_notifications),
		 tier_notifications=VALUES(tier_notifications)`,
		p.UserID, p.PushEnabled, p.EmailEnabled, p.SMSEnabled, p.WhatsAppEnabled, p.WhatsAppEnabled,
		p.PromoNotifications, p.PointsNotifications, p.TierNotifications)
	return err
}
