package domain

import "errors"

// Errores de construccion de sesion: se propagan al caller, que decide reintentar.
// Los fallos durante un envio NO usan estos sentinels; se absorben en Reply (ver service).
var (
	// ErrConfiguration indica credencial ausente o rechazada por el proveedor.
	// No es reintentable sin intervencion del operador.
	ErrConfiguration = errors.New("provider configuration invalid")

	// ErrProviderUnavailable indica un fallo transitorio de red/proveedor
	// durante la construccion de sesion.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrEmptyTurn indica un turno sin texto y sin adjunto.
	ErrEmptyTurn = errors.New("turn requires text or attachment")

	// ErrNotFound indica que el recurso no existe o no pertenece al usuario.
	ErrNotFound = errors.New("not found")
)
