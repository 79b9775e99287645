// Command token mints a bearer token for local development, signed with JWT_SECRET.
//
//	go run ./cmd/token -uid 0f8c2b6e -email dev@example.com
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/img2prompt/service/internal/auth"
	"github.com/img2prompt/service/internal/config"
	"github.com/img2prompt/service/internal/logger"
)

func main() {
	uid := flag.String("uid", "", "user id placed in the sub claim")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	log := logger.New("info", true)

	cfg, _, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.IsProduction() {
		log.Fatal().Msg("refusing to mint tokens with APP_ENV=production")
	}
	if *uid == "" {
		flag.Usage()
		os.Exit(2)
	}

	tok, err := auth.NewTokens(cfg.JWTSecret).Issue(auth.Identity{UID: *uid, Email: *email}, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("issue token")
	}
	fmt.Println(tok)
}
