package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"xrpl-iou-issuer-go/internal/common"
	"xrpl-iou-issuer-go/internal/models"

	"go.uber.org/zap"
)

func main() {
	fileFlag := flag.String("file", "batch.yaml", "YAML file listing the mints to issue")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	items, err := common.LoadBatchFile(*fileFlag)
	if err != nil {
		zap.L().Fatal("Failed to load batch file", zap.String("file", *fileFlag), zap.Error(err))
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

	common.PrintHeader(fmt.Sprintf("BATCH MINT: %d items of %s", len(items), cfg.Issuer.Currency), common.WideWidth)

	result, err := services.Issuance.MintBatch(ctx, items)
	if err != nil {
		fmt.Printf("❌ Batch rejected: %v\n", err)
		services.Close()
		os.Exit(1)
	}

	common.PrintBatchResult(result)
	common.PrintFooter(fmt.Sprintf("Batch finished: %s", result.Status), common.WideWidth)

	if result.Status != models.BatchStatusSuccess {
		services.Close()
		os.Exit(1)
	}
}
