package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/workdoc/workdoc/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long:  `Generate the OpenAPI 3.1 document describing the workdoc HTTP API.`,
		Example: `  workdoc openapi                   # print to stdout
  workdoc openapi -o openapi.json   # write to file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(cmd.OutOrStdout(), baseURL, outputFile)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL in the document (default: server.base_url)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")

	return cmd
}

func runOpenAPI(out io.Writer, baseURL, outputFile string) error {
	if baseURL == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		baseURL = cfg.Server.BaseURL
	}

	doc := openapi.Generate(baseURL, versionString())
	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal openapi: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, jsonBytes, 0644); err != nil {
			return fmt.Errorf("write %s: %w", outputFile, err)
		}
		fmt.Fprintf(out, "Wrote %s\n", outputFile)
		return nil
	}
	_, err = fmt.Fprintln(out, string(jsonBytes))
	return err
}
