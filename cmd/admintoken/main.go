// Command admintoken issues a token that backs isAdmin on join when the chat
// server runs with chat.admin_policy=verify.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bandsite/fan-chat/internal/config"
	pkgconfig "github.com/bandsite/fan-chat/pkg/config"
	"github.com/bandsite/fan-chat/pkg/jwt"
	pkglog "github.com/bandsite/fan-chat/pkg/log"
)

func main() {
	subject := flag.String("subject", "", "who the token is issued to (required)")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to chat.admin_ttl")
	flag.Parse()

	logger := pkglog.New(pkglog.Config{Level: "info", Pretty: true, Output: os.Stderr})

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := pkgconfig.LoadDotEnv(); err != nil {
		logger.Fatal().Err(err).Msg("failed to read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	lifetime := cfg.Chat.AdminTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	manager, err := jwt.NewManager(cfg.Chat.AdminSecret, cfg.Chat.AdminIssuer, lifetime)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot issue admin tokens")
	}

	token, err := manager.IssueAdminToken(*subject)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to issue admin token")
	}

	logger.Info().
		Str("subject", *subject).
		Time("expires_at", time.Now().Add(lifetime)).
		Msg("admin token issued")
	fmt.Println(token)
}
