// cmd/dossier/main.go
package main

import (
	"github.com/joho/godotenv"

	cmd "github.com/mwiater/dossier/internal/cli"
)

// main starts the dossier CLI application by delegating to the cobra root
// command. A .env file in the working directory is loaded first so the
// provider API key can live outside the shell profile; a missing file is
// not an error.
func main() {
	_ = godotenv.Load()
	cmd.Execute()
}
