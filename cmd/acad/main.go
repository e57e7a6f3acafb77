package main

import (
	"os"

	"github.com/wonny/acadport/backend/cmd/acad/commands"
)

// main is the entry point for the acadport CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/acad [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
