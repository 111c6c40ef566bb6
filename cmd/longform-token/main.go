// Command longform-token mints a bearer token for local development.
//
//	JWT_SECRET=dev longform-token -user u1 -name ann
package main

import (
	"flag"
	"fmt"
	"os"

	"example.com/longform/internal/auth"
	"example.com/longform/internal/config"
	"example.com/longform/internal/logging"
)

func main() {
	userID := flag.String("user", "", "user id (token subject)")
	username := flag.String("name", "", "display name")
	ttl := flag.Duration("ttl", 0, "token lifetime (default from TOKEN_TTL_MINUTES)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("config")
	}
	if *ttl <= 0 {
		*ttl = cfg.Auth.TokenTTL()
	}

	a, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, nil, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("auth (set JWT_SECRET)")
	}
	tok, err := a.Issue(*userID, *username, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	fmt.Println(tok)
}
