/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"xrpl-iou-issuer-go/internal/common"
	"xrpl-iou-issuer-go/internal/models"

	"go.uber.org/zap"
)

func parseAndValidateFlags() (models.MintRequest, error) {
	toFlag := flag.String("to", "", "Recipient classic address (required)")
	amountFlag := flag.String("amount", "", "Amount to issue, as a decimal string (required)")
	flag.Parse()

	to := strings.TrimSpace(*toFlag)
	value := strings.TrimSpace(*amountFlag)
	if to == "" || value == "" {
		return models.MintRequest{}, fmt.Errorf("all flags are required: --to, --amount")
	}
	return models.MintRequest{To: to, Amount: value}, nil
}

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
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

	common.PrintHeader(fmt.Sprintf("MINT %s %s", req.Amount, cfg.Issuer.Currency), common.DefaultWidth)
	fmt.Printf("Issuer:    %s\n", services.Identity.Address())
	fmt.Printf("Recipient: %s\n\n", req.To)

	receipt, err := services.Issuance.MintSingle(ctx, req)
	if err != nil {
		fmt.Printf("❌ Mint failed: %v\n", err)
		services.Close()
		os.Exit(1)
	}

	common.PrintReceipt(req.To, req.Amount, receipt)
	common.PrintFooter("Mint complete", common.DefaultWidth)
}
