package domain

import "time"

// Message es una entrada del log append-only de una conversacion.
// El log pertenece a la capa llamadora; el core solo produce la Reply que se anexa.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	AttachmentMime string    `json:"attachment_mime,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
