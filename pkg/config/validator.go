package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ConfigValidator struct {
	validate *validator.Validate
}

// NewValidator cria uma nova instância do validador
func NewValidator() *ConfigValidator {
	return &ConfigValidator{
		validate: validator.New(),
	}
}

// Validate realiza validações estruturais (tags) e semânticas (lógica)
func (cv *ConfigValidator) Validate(cfg *Config) error {
	// 1. Validação Estrutural (Tags do struct: required, oneof, etc)
	if err := cv.validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			var errMsgs []string
			for _, e := range validationErrors {
				errMsgs = append(errMsgs, fmt.Sprintf("Campo '%s' falhou na regra '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("erros de validação estrutural:\n- %s", strings.Join(errMsgs, "\n- "))
		}
		return fmt.Errorf("erro de validação estrutural: %w", err)
	}

	// 2. Validação Semântica
	if err := cv.validateSemantics(cfg); err != nil {
		return fmt.Errorf("erro de validação semântica: %w", err)
	}

	return nil
}

func (cv *ConfigValidator) validateSemantics(cfg *Config) error {
	// 1. Credencial é obrigatória: sem fallback embutido no código
	if !cfg.Upstream.HasCredentialSource() {
		return fmt.Errorf("nenhuma origem de token configurada: defina FOCUS_NFE_TOKEN, FOCUS_NFE_TOKEN_SECRET_ID ou FOCUS_NFE_TOKEN_PARAMETER")
	}

	// 2. Base URL precisa ser http(s) absoluta
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url inválida: '%s'", cfg.Upstream.BaseURL)
	}

	// 3. Consulta nunca pode ser mais lenta que gerenciamento
	if cfg.Upstream.ConsultTimeout > cfg.Upstream.ManagementTimeout {
		return fmt.Errorf("consult_timeout (%s) maior que management_timeout (%s)",
			cfg.Upstream.ConsultTimeout, cfg.Upstream.ManagementTimeout)
	}

	// 4. Sqlite precisa de caminho
	if cfg.Cache.Backend == BackendSQLite && cfg.Cache.SQLitePath == "" {
		return fmt.Errorf("cache sqlite exige sqlite_path")
	}

	return nil
}
