package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	content := `
service: {name: "cli-test", runtime: "local", port: 8080}
upstream:
  base_url: "` + baseURL + `"
  token: "tk"
logging: {level: "error", format: "json"}
`
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate(t *testing.T) {
	t.Run("Configuração válida", func(t *testing.T) {
		out, err := execute(t, "validate", "-c", writeConfig(t, "https://api.focusnfe.com.br/"))
		require.NoError(t, err)
		assert.Contains(t, out, "Configuração Válida")
	})

	t.Run("Saída JSON com avisos", func(t *testing.T) {
		out, err := execute(t, "validate", "--json", "-c", writeConfig(t, "http://localhost:9090/"))
		require.NoError(t, err)

		var report map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, true, report["valid"])
		assert.NotEmpty(t, report["warnings"])
	})

	t.Run("Arquivo inexistente", func(t *testing.T) {
		out, err := execute(t, "validate", "-c", "nao-existe.yaml")
		assert.ErrorIs(t, err, errInvalidConfig)
		assert.Contains(t, out, "Erro de Carregamento")
	})
}

func TestStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v2/nfse/400427A" {
			w.Write([]byte(`{"status":"autorizado","numero":"198"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()
	path := writeConfig(t, upstream.URL+"/")

	t.Run("Autorizada", func(t *testing.T) {
		out, err := execute(t, "status", "400427A", "-c", path)
		require.NoError(t, err)
		assert.Contains(t, out, `"autorizado"`)
		assert.Contains(t, out, `"success": true`)
	})

	t.Run("Pendente", func(t *testing.T) {
		out, err := execute(t, "status", "OUTRA", "-c", path)
		require.NoError(t, err)
		assert.Contains(t, out, `"processando"`)
	})

	t.Run("Sem argumento", func(t *testing.T) {
		_, err := execute(t, "status", "-c", path)
		assert.Error(t, err)
	})
}

func TestForward(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":7}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"codigo":"nao_encontrado","cnpj":"` + r.URL.Query().Get("cnpj") + `"}`))
	}))
	defer upstream.Close()
	path := writeConfig(t, upstream.URL+"/")

	t.Run("POST com corpo", func(t *testing.T) {
		out, err := execute(t, "forward", "POST", "v2/empresas", "-d", `{"nome":"X"}`, "-c", path)
		require.NoError(t, err)
		assert.Contains(t, out, `"id": 7`)
	})

	t.Run("Status de erro vira erro da CLI", func(t *testing.T) {
		out, err := execute(t, "forward", "GET", "v2/empresas/1", "-q", "cnpj=123", "-c", path)
		assert.ErrorContains(t, err, "HTTP 404")
		assert.Contains(t, out, `"cnpj": "123"`)
	})

	t.Run("Query inválida", func(t *testing.T) {
		_, err := execute(t, "forward", "GET", "v2/empresas", "-q", "semvalor", "-c", path)
		assert.ErrorContains(t, err, "chave=valor")
	})

	t.Run("Erro classificado imprime envelope", func(t *testing.T) {
		out, err := execute(t, "forward", "GET", " ", "-c", path)
		assert.ErrorContains(t, err, "HTTP 400")
		assert.Contains(t, out, `"path required"`)
	})
}
