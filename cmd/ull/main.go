// Command ull is the command-line interface to the meaning-first content layer.
package main

import (
	"github.com/joho/godotenv"

	"github.com/mesh-intelligence/ull/internal/cli"
)

func main() {
	// A .env file is optional; ULL_* variables may come from the environment.
	_ = godotenv.Load()
	cli.Execute()
}
