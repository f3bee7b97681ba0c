// Command profilebot serves the Telegram webhook that walks users through
// creating a LUKSO Universal Profile.
package main

import (
	"log"

	"github.com/joho/godotenv"

	corecmd "github.com/m3rciful/profilebot/core/cmd"
)

func main() {
	_ = godotenv.Load()

	if err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		Bootstrap:         newApp,
	}); err != nil {
		log.Fatal(err)
	}
}
