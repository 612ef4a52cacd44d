package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"xrpl-iou-issuer-go/internal/common"

	"go.uber.org/zap"
)

func main() {
	toFlag := flag.String("to", "", "Holder classic address to inspect (required unless --limit is set)")
	limitFlag := flag.String("limit", "", "Create a wallet signing request for a TrustSet with this limit")
	waitFlag := flag.Duration("wait", 0, "With --limit, poll the signing request this long for a signature")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	to := strings.TrimSpace(*toFlag)
	limit := strings.TrimSpace(*limitFlag)
	if to == "" && limit == "" {
		fmt.Fprintln(os.Stderr, "Error: --to or --limit is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if to != "" {
		common.PrintHeader(fmt.Sprintf("TRUST LINE %s -> %s", cfg.Issuer.Currency, to), common.DefaultWidth)
		line, err := services.Issuance.CheckTrustline(ctx, to)
		if err != nil {
			zap.L().Fatal("Failed to check trust line", zap.String("holder", to), zap.Error(err))
		}
		if line == nil {
			fmt.Printf("❌ %s has no trust line for %s issued by %s\n", to, cfg.Issuer.Currency, services.Identity.Address())
		} else {
			fmt.Printf("✅ Trust line found\n")
			fmt.Printf("%sLimit:   %s\n", common.BoxPrefix(false), line.Limit)
			fmt.Printf("%sBalance: %s\n", common.BoxPrefix(true), line.Balance)
		}
	}

	if limit == "" {
		return
	}

	tx, err := services.Issuance.TrustSetTemplate(limit)
	if err != nil {
		zap.L().Fatal("Invalid trust line limit", zap.String("limit", limit), zap.Error(err))
	}
	ref, err := services.Signer.CreatePayload(ctx, tx)
	if err != nil {
		zap.L().Fatal("Failed to create signing request", zap.Error(err))
	}
	fmt.Printf("\nOpen in a wallet to sign the TrustSet:\n  %s\n  QR: %s\n", ref.Link, ref.QR)

	if *waitFlag <= 0 {
		return
	}
	deadline := time.Now().Add(*waitFlag)
	for time.Now().Before(deadline) {
		status, err := services.Signer.GetPayloadStatus(ctx, ref.UUID)
		if err != nil {
			zap.L().Warn("Signing status lookup failed", zap.String("uuid", ref.UUID), zap.Error(err))
		} else if status.Signed {
			fmt.Printf("✅ Signed by %s (tx %s)\n", status.Account, status.TxID)
			return
		} else if status.Expired {
			fmt.Println("❌ Signing request expired")
			return
		}
		time.Sleep(3 * time.Second)
	}
	fmt.Println("Signing request still open")
}
