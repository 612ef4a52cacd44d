package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"xrpl-iou-issuer-go/internal/models"

	"gopkg.in/yaml.v2"
)

// BatchFile is a list of mints read by the mintbatch command:
//
//	items:
//	  - to: rRecipient...
//	    amount: "12.5"
type BatchFile struct {
	Items []models.MintRequest `yaml:"items"`
}

func LoadBatchFile(batchFile string) ([]models.MintRequest, error) {
	var batchPath string
	if filepath.IsAbs(batchFile) {
		batchPath = batchFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		batchPath = filepath.Join(wd, batchFile)
	}

	data, err := os.ReadFile(batchPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", batchFile, err)
	}

	var file BatchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", batchFile, err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("%s contains no items", batchFile)
	}

	for i, item := range file.Items {
		file.Items[i].To = strings.TrimSpace(item.To)
		file.Items[i].Amount = strings.TrimSpace(item.Amount)
		if file.Items[i].To == "" {
			return nil, fmt.Errorf("item at index %d missing recipient", i)
		}
		if file.Items[i].Amount == "" {
			return nil, fmt.Errorf("item at index %d missing amount", i)
		}
	}

	return file.Items, nil
}
