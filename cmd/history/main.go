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
	"strings"

	"xrpl-iou-issuer-go/internal/common"

	"go.uber.org/zap"
)

func main() {
	toFlag := flag.String("to", "", "Only show mints to this recipient")
	limitFlag := flag.Int("limit", 50, "Number of mints to show")
	offsetFlag := flag.Int("offset", 0, "Number of mints to skip")
	totalsFlag := flag.Bool("totals", false, "Show validated totals per recipient instead of history")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := common.LoadConfig()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	issuanceStore, err := common.InitializeStore(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to open mint store", zap.Error(err))
	}
	defer issuanceStore.Close()

	if *totalsFlag {
		totals, err := issuanceStore.GetIssuedTotals(ctx)
		if err != nil {
			zap.L().Fatal("Failed to read issued totals", zap.Error(err))
		}
		common.PrintHeader("VALIDATED ISSUANCE BY RECIPIENT", common.WideWidth)
		common.PrintTotals(totals)
		common.PrintFooter(fmt.Sprintf("%d recipients", len(totals)), common.WideWidth)
		return
	}

	to := strings.TrimSpace(*toFlag)
	records, err := issuanceStore.GetMintHistory(ctx, to, *limitFlag, *offsetFlag)
	if err != nil {
		zap.L().Fatal("Failed to read mint history", zap.String("recipient", to), zap.Error(err))
	}

	title := "MINT HISTORY"
	if to != "" {
		title += " FOR " + to
	}
	common.PrintHeader(title, common.WideWidth)
	common.PrintMintRecords(records)
	common.PrintFooter(fmt.Sprintf("%d mints shown", len(records)), common.WideWidth)
}
