package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/ftson/ftson/internal/gen"
)

const version = "0.0.0"

func main() {
	rootCmd := gen.New()
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
