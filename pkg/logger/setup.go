package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PreviewLimit é o tamanho máximo (bytes) da prévia de resposta registrada nos logs.
const PreviewLimit = 256

// Configure inicializa o logger global baseando-se na configuração.
func Configure(cfg config.LoggingConf) zerolog.Logger {
	return ConfigureWriter(cfg, os.Stdout)
}

// ConfigureWriter é igual ao Configure, mas com saída customizável (útil em testes).
func ConfigureWriter(cfg config.LoggingConf, out io.Writer) zerolog.Logger {
	// Define o nível de log (default: info)
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// JSON para produção, Console "bonito" para local se solicitado
	output := out
	if cfg.Disabled {
		output = io.Discard
	} else if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Logger()

	// Loggers derivados via log.With()/log.Ctx() herdam a mesma saída
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	return logger
}

// Preview trunca o corpo de uma resposta para registro em log.
func Preview(body []byte) string {
	if len(body) <= PreviewLimit {
		return string(body)
	}
	return string(body[:PreviewLimit]) + "..."
}
