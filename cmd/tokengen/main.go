// Command tokengen mints a signed identity token for manual testing:
//
//	TOKEN_SECRET=... go run ./cmd/tokengen -identity alice -ttl 24h
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"chat-core/auth"
	"chat-core/domain"
)

func main() {
	identity := flag.String("identity", "", "caller identity to bind")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *identity == "" {
		log.Fatal("-identity is required")
	}
	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		log.Fatal("TOKEN_SECRET is required")
	}

	token, err := auth.NewTokens(secret, *ttl).Generate(domain.Identity(*identity))
	if err != nil {
		log.Fatal("Error while signing token: ", err)
	}
	fmt.Println(token)
}
