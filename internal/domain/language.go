package domain

import "strings"

// Language representa un idioma soportado por el asistente.
type Language struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// Conjunto fijo de idiomas soportados. Un codigo desconocido cae en ingles.
var supportedLanguages = []Language{
	{Code: "en", DisplayName: "English"},
	{Code: "es", DisplayName: "Spanish"},
	{Code: "fr", DisplayName: "French"},
	{Code: "de", DisplayName: "German"},
	{Code: "pt", DisplayName: "Portuguese"},
	{Code: "hi", DisplayName: "Hindi"},
}

// DefaultLanguage es el fallback para codigos no reconocidos.
var DefaultLanguage = supportedLanguages[0]

// ResolveLanguage devuelve el idioma para un codigo, o ingles si no se reconoce.
func ResolveLanguage(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range supportedLanguages {
		if l.Code == code {
			return l
		}
	}
	return DefaultLanguage
}

// SupportedLanguages devuelve una copia de la lista de idiomas.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}
