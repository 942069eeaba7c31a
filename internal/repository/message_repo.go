package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"compass-llm/internal/domain"
)

// MessageRepository define el contrato de persistencia del log append-only.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error)
}

// PgMessageRepository implementa MessageRepository usando pgxpool.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, conversation_id, user_id, role, content, attachment_mime, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var attachmentMime interface{}
	if message.AttachmentMime != "" {
		attachmentMime = message.AttachmentMime
	}

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.ConversationID,
		message.UserID,
		message.Role,
		message.Content,
		attachmentMime,
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, user_id, role, content, attachment_mime, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var attachmentMime *string

		err = rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.UserID,
			&msg.Role,
			&msg.Content,
			&attachmentMime,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if attachmentMime != nil {
			msg.AttachmentMime = *attachmentMime
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
