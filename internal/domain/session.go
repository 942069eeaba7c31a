package domain

import "time"

// ConversationSession es el handle en memoria de una sesion con el proveedor.
// El system prompt (Persona) queda fijo durante toda la vida de la sesion;
// cambiar idioma o persona exige crear una sesion nueva. Nunca se persiste:
// se abandona en vez de cerrarse y se reconstruye bajo demanda.
type ConversationSession struct {
	ID          string    `json:"id"`
	Language    Language  `json:"language"`
	Persona     string    `json:"-"`
	Temperature float64   `json:"temperature"`
	CreatedAt   time.Time `json:"created_at"`

	// History acumula los turnos aplicados, en orden de envio. Envios
	// concurrentes sobre el mismo handle quedan fuera de contrato.
	History []Content `json:"-"`
}
