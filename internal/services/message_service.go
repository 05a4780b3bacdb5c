package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bybo/bybo-be/internal/database"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/google/uuid"
)

// MessageServiceProvider defines the interface for direct messages.
type MessageServiceProvider interface {
	Send(ctx context.Context, fromUserID, toUserID, text string) (models.Message, error)
	Inbox(ctx context.Context, userID string) ([]models.Message, error)
	MarkRead(ctx context.Context, messageID, userID string) error
}

// MessageService stores direct messages between users.
type MessageService struct {
	db *sql.DB
}

// NewMessageService creates a new MessageService.
func NewMessageService(db *sql.DB) *MessageService {
	return &MessageService{db: db}
}

// Send stores a message from one user to another.
func (s *MessageService) Send(ctx context.Context, fromUserID, toUserID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, apperrors.Validation("message text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return models.Message{}, apperrors.Validation(fmt.Sprintf("message text must not exceed %d characters", models.MaxMessageLength))
	}
	if fromUserID == toUserID {
		return models.Message{}, apperrors.Validation("cannot message yourself")
	}

	msg := models.Message{
		ID:         uuid.New().String(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Text:       text,
		Timestamp:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, text, timestamp, from_user_id, to_user_id, is_read) VALUES (?, ?, ?, ?, ?, 0)`,
		msg.ID, msg.Text, database.FormatTime(msg.Timestamp), msg.FromUserID, msg.ToUserID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return models.Message{}, apperrors.NotFound("recipient not found")
		}
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// Inbox returns messages addressed to userID, newest first.
func (s *MessageService) Inbox(ctx context.Context, userID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_user_id, to_user_id, text, is_read, timestamp
		FROM messages WHERE to_user_id = ?
		ORDER BY timestamp DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var (
			m  models.Message
			ts database.Timestamp
		)
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Text, &m.IsRead, &ts); err != nil {
			return nil, err
		}
		m.Timestamp = ts.Time
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkRead flags a message as read. Only its recipient may do so.
func (s *MessageService) MarkRead(ctx context.Context, messageID, userID string) error {
	var recipient string
	err := s.db.QueryRowContext(ctx, `SELECT to_user_id FROM messages WHERE id = ?`, messageID).Scan(&recipient)
	if err == sql.ErrNoRows {
		return apperrors.NotFound("message not found")
	}
	if err != nil {
		return fmt.Errorf("lookup message: %w", err)
	}
	if recipient != userID {
		return apperrors.Forbidden("only the recipient can mark a message as read")
	}

	_, err = s.db.ExecContext(ctx, `UPDATE messages SET is_read = 1 WHERE id = ?`, messageID)
	return err
}
