package domain

import "time"

// Conversation es la cabecera persistida de un hilo de chat. La sesion de
// proveedor asociada vive solo en memoria y comparte el mismo ID.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Language  string    `json:"language"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
