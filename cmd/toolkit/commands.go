package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/raywall/nfse-gateway/pkg/engine"
	"github.com/raywall/nfse-gateway/pkg/gateway"
	"github.com/spf13/cobra"
)

var errInvalidConfig = errors.New("configuração inválida")

func newValidateCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Valida a configuração (estrutura, semântica e boas práticas)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, _ := cmd.Flags().GetString("config")

			// 1. Load (Validação Estrutural)
			cfg, err := config.NewLoader().Load(cmd.Context(), path)
			if err != nil {
				fmt.Fprintf(out, "❌ Erro de Carregamento/Estrutura:\n%v\n", err)
				return errInvalidConfig
			}

			// 2. Analyze (Validação Lógica)
			report := engine.Analyze(cfg)

			if asJSON || os.Getenv("OUTPUT_FORMAT") == "json" {
				if err := json.NewEncoder(out).Encode(report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}

			if !report.Valid {
				return errInvalidConfig
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "saída em JSON")
	return cmd
}

func printReport(out io.Writer, report *engine.ValidationReport) {
	for _, e := range report.Errors {
		fmt.Fprintf(out, "❌ %s\n", e)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "⚠️  %s\n", w)
	}
	if report.Valid {
		fmt.Fprintln(out, "✅ Configuração Válida e Pronta para Deploy!")
	}
}

func newStatusCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status <referencia>",
		Short: "Consulta o status de uma NFSe pela referência",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := buildService(cmd, verbose)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.DocumentStatus(cmd.Context(), args[0])
			return printResult(cmd.OutOrStdout(), svc, resp, err)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "exibe os logs do gateway")
	return cmd
}

func newForwardCmd() *cobra.Command {
	var (
		verbose bool
		data    string
		query   []string
	)

	cmd := &cobra.Command{
		Use:   "forward <método> <caminho>",
		Short: "Executa uma chamada avulsa à Focus NFe (ex: forward GET v2/empresas)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseQuery(query)
			if err != nil {
				return err
			}

			body := []byte(data)
			if strings.HasPrefix(data, "@") {
				if body, err = os.ReadFile(strings.TrimPrefix(data, "@")); err != nil {
					return fmt.Errorf("falha ao ler corpo: %w", err)
				}
			}

			svc, closeFn, err := buildService(cmd, verbose)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.Forward(cmd.Context(), gateway.ProxyRequest{
				Method:       args[0],
				UpstreamPath: args[1],
				Query:        params,
				Body:         body,
			})
			return printResult(cmd.OutOrStdout(), svc, resp, err)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "exibe os logs do gateway")
	cmd.Flags().StringVarP(&data, "data", "d", "", "corpo JSON (ou @arquivo.json)")
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "parâmetro de query chave=valor (repetível)")
	return cmd
}

// buildService monta o mesmo serviço usado pelo servidor HTTP.
func buildService(cmd *cobra.Command, verbose bool) (*gateway.Service, func(), error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.NewLoader().Load(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if !verbose {
		cfg.Logging.Disabled = true
	}

	eng, err := engine.NewServiceEngine(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return eng.Service, func() { _ = eng.Close() }, nil
}

func printResult(out io.Writer, svc *gateway.Service, resp *gateway.UpstreamResponse, err error) error {
	if err != nil {
		status, env := svc.Envelope(err)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(env)
		return fmt.Errorf("falha (HTTP %d): %s", status, env.Message)
	}

	if resp.Payload == nil {
		fmt.Fprintln(out, resp.Text)
	} else {
		var pretty interface{}
		if json.Unmarshal(resp.Payload, &pretty) == nil {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			_ = enc.Encode(pretty)
		} else {
			fmt.Fprintln(out, string(resp.Payload))
		}
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("upstream respondeu HTTP %d", resp.StatusCode)
	}
	return nil
}

func parseQuery(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("parâmetro de query inválido %q (use chave=valor)", p)
		}
		params[k] = v
	}
	return params, nil
}
