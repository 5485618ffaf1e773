// Command ledger-token mints a bearer token for an owner using JWT_SECRET,
// for local use and for provisioning API clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"splitledger/internal/cli"
	"splitledger/internal/log"
	"splitledger/internal/middleware/auth"
)

func main() {
	owner := flag.String("owner", "", "owner id placed in the token subject (required)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentAuth)
	ctx := context.Background()

	if strings.TrimSpace(*owner) == "" || *ttl <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	token, err := auth.NewManager(cfg.JWTSecret).Issue(*owner, *ttl)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to issue token", log.FieldError, err)
		os.Exit(1)
	}
	logger.DebugContext(ctx, "Token issued", log.FieldOwnerID, *owner, "expires_in", ttl.String())
	fmt.Println(token)
}
