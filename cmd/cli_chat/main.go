package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"compass-llm/internal/domain"
	"compass-llm/internal/llm"
	"compass-llm/internal/service"
)

// Chat interactivo contra el core, sin HTTP ni base de datos.
// No usa config.LoadConfig: aca solo importan las variables del proveedor.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	temperature := 0.7
	if raw := os.Getenv("LLM_TEMPERATURE"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			temperature = parsed
		}
	}

	logger := zap.NewExample()
	defer logger.Sync()

	provider := llm.NewGeminiClient(
		os.Getenv("GEMINI_BASE_URL"),
		os.Getenv("GEMINI_API_KEY"),
		os.Getenv("GEMINI_MODEL"),
		logger,
	)
	sessionSvc := service.NewSessionService(provider, temperature, logger)
	exchangeSvc := service.NewExchangeService(provider, logger)

	fmt.Println("===== Compass CLI =====")
	fmt.Println("Languages:")
	for _, l := range domain.SupportedLanguages() {
		fmt.Printf("  [%s] %s\n", l.Code, l.DisplayName)
	}
	fmt.Print("Language code (default en): ")
	code, _ := reader.ReadString('\n')

	session, err := sessionSvc.CreateSession(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			log.Fatalf("assistant not configured: %v", err)
		}
		log.Fatalf("could not create session: %v", err)
	}
	fmt.Printf("Session %s ready (%s). Type 'exit' to quit.\n\n", session.ID, session.Language.DisplayName)

	for {
		fmt.Print("you> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			return
		}

		reply := exchangeSvc.Send(ctx, session, domain.Turn{Text: line})
		fmt.Printf("compass> %s\n", reply.Text)
		if len(reply.Citations) > 0 {
			fmt.Printf("(%d sources cited)\n", len(reply.Citations))
		}
		fmt.Println()
	}
}
