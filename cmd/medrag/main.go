package main

import (
	"github.com/joho/godotenv"

	"medrag/internal/cli"
)

func main() {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()
	cli.Execute()
}
