package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

const (
	DefaultPort         = 9090
	DefaultPendingPolls = 1
	DefaultPath         = "emulator.json"
)

// Config descreve o sandbox da Focus NFe.
type Config struct {
	Port int `json:"port"`
	// Token esperado no Basic Auth. Vazio aceita qualquer token não vazio.
	Token string `json:"token"`
	// PendingPolls é quantas consultas respondem 404 antes da nota ser autorizada.
	PendingPolls int `json:"pending_polls"`
	// LatencyMs atrasa toda resposta (simula upstream lento).
	LatencyMs int           `json:"latency_ms"`
	Routes    []RouteConfig `json:"routes"`
}

// Load carrega a configuração do arquivo padrão (emulator.json) ou via variável de ambiente.
// Retorna a configuração default se o arquivo não existir, para não quebrar a inicialização.
func Load() Config {
	path := os.Getenv("EMULATOR_CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Configuração do emulador não carregada. Usando defaults.")
		return Defaults()
	}
	return cfg
}

// Defaults devolve a configuração sem rotas de fixture.
func Defaults() Config {
	return Config{Port: DefaultPort, PendingPolls: DefaultPendingPolls}
}

// LoadFromFile lê e valida o JSON de configuração.
func LoadFromFile(filepath string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(filepath)
	if err != nil {
		return cfg, fmt.Errorf("erro ao ler arquivo: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("erro ao parsear json: %w", err)
	}

	if cfg.PendingPolls < 0 {
		return cfg, fmt.Errorf("pending_polls não pode ser negativo: %d", cfg.PendingPolls)
	}
	for i, r := range cfg.Routes {
		if r.Path == "" || r.Method == "" {
			return cfg, fmt.Errorf("rota %d sem path ou method", i)
		}
	}
	return cfg, nil
}
