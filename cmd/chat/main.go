// Portfolio Chat - terminal chat widget
package main

import (
	"os"

	"github.com/ashureev/portfolio-chat/internal/cli"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()
	os.Exit(cli.Execute(version))
}
