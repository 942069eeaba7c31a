package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuracion del servicio.
// GEMINI_API_KEY no es required a proposito: su ausencia falla de forma lazy
// al construir la primera sesion, no al arrancar el proceso.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	GeminiAPIKey  string  `env:"GEMINI_API_KEY"`
	GeminiBaseURL string  `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel   string  `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	Temperature   float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ChatRateWindowSeconds int `env:"CHAT_RATE_WINDOW_SECONDS" envDefault:"60"`
	ChatRateMax           int `env:"CHAT_RATE_MAX" envDefault:"20"`
}

// LoadConfig carga la configuracion desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
