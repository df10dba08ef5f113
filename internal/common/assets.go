package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

type AssetConfig struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

type AssetsConfig struct {
	Assets []AssetConfig `yaml:"assets"`
}

// LoadAssetConfig reads the supported asset list. Symbols are upper-cased
// and must be unique.
func LoadAssetConfig(assetsFile string) ([]AssetConfig, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", assetsFile, err)
	}

	seen := make(map[string]bool, len(config.Assets))
	for i, asset := range config.Assets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("asset %s listed twice", symbol)
		}
		seen[symbol] = true
		config.Assets[i].Symbol = symbol
	}

	return config.Assets, nil
}

func LoadAssetSymbols(assetsFile string) ([]string, error) {
	assets, err := LoadAssetConfig(assetsFile)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(assets))
	for i, asset := range assets {
		symbols[i] = asset.Symbol
	}

	return symbols, nil
}

// LoadOptionalAssetSymbols is LoadAssetSymbols for callers that treat a
// missing file as "accept every asset".
func LoadOptionalAssetSymbols(assetsFile string) ([]string, error) {
	symbols, err := LoadAssetSymbols(assetsFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return symbols, err
}
