// AngelaMos | 2026
// main.go

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/propertynext/backend/internal/auth"
)

func main() {
	outDir := flag.String("out", "keys", "directory for the ES256 key pair")
	flag.Parse()

	if err := run(*outDir); err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}
}

func run(outDir string) error {
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	privatePath := filepath.Join(outDir, "private.pem")
	publicPath := filepath.Join(outDir, "public.pem")

	if _, err := os.Stat(privatePath); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", privatePath)
	}

	if err := auth.GenerateKeyPair(privatePath, publicPath); err != nil {
		return err
	}

	fmt.Println("wrote", privatePath)
	fmt.Println("wrote", publicPath)
	return nil
}
