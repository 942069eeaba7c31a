package domain

// Roles de los contenidos enviados al proveedor y del log de mensajes.
const (
	RoleUser      = "user"
	RoleModel     = "model"
	RoleAssistant = "assistant"
)

// InlineData es un adjunto binario: bytes en base64 mas su MIME type.
// El core no valida tamano ni tipo; eso es responsabilidad del caller.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Part es una parte ordenada de un contenido: texto o datos inline, nunca ambos.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// Content es un turno completo (usuario o modelo) dentro del contexto conversacional.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Turn es una entrada del usuario: texto libre y/o un unico adjunto.
// Invariante: texto no vacio O adjunto presente; lo exige el caller antes de enviar.
type Turn struct {
	Text       string      `json:"text"`
	Attachment *InlineData `json:"attachment,omitempty"`
}

// Citation es una fuente (titulo, URI) de la que el proveedor dice haberse apoyado.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Reply es la salida normalizada de un turno. Text siempre esta definido:
// ante cualquier fallo de intercambio se devuelve un texto fijo de fallback.
// Err expone el error real como canal diagnostico; nunca llega al usuario final.
type Reply struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
	Err       error      `json:"-"`
}
