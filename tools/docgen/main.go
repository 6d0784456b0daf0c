// Package main generates CLI reference documentation from the amc command
// tree, as markdown or man pages, and the mock API's OpenAPI document.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/auto-marketplace/api/openapi"
	"github.com/donaldgifford/auto-marketplace/cmd/amc/cmd"
	"github.com/donaldgifford/auto-marketplace/internal/mockapi"
	"github.com/donaldgifford/auto-marketplace/internal/store"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory")
	format := flag.String("format", "md", "output format (md, man, openapi)")
	flag.Parse()

	if err := generate(cmd.Root(), *output, *format); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s docs generated in %s/\n", *format, *output)
}

func generate(root *cobra.Command, dir, format string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	root.DisableAutoGenTag = true

	switch format {
	case "md":
		if err := doc.GenMarkdownTree(root, dir); err != nil {
			return fmt.Errorf("generating markdown: %w", err)
		}
	case "man":
		header := &doc.GenManHeader{Title: "AMC", Section: "1", Source: "auto-marketplace"}
		if err := doc.GenManTree(root, header, dir); err != nil {
			return fmt.Errorf("generating man pages: %w", err)
		}
	case "openapi":
		return writeOpenAPI(dir)
	default:
		return fmt.Errorf("unknown format %q (want md, man or openapi)", format)
	}
	return nil
}

// writeOpenAPI renders openapi.json and openapi.yaml from the registered
// mock API operations.
func writeOpenAPI(dir string) error {
	srv := mockapi.New(store.NewMemoryStore(), mockapi.Config{JWTSecret: "docgen"}, nil)
	for _, format := range []string{"json", "yaml"} {
		var buf bytes.Buffer
		if err := openapi.Write(&buf, srv.API(), format); err != nil {
			return err
		}
		path := filepath.Join(dir, "openapi."+format)
		if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
