package main

import (
	"log"
	"os"

	"github.com/alex-user-go/tripquote/internal/app"
)

func main() {
	if err := app.Run(os.Getenv("TRIPQUOTE_CONFIG")); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
