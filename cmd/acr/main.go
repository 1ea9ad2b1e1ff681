package main

import (
	"os"

	"github.com/wonny/acr/cmd/acr/commands"
)

// main is the entry point for the ACR CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/acr [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
