package footage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Asset is one downloaded stock clip accepted into a job's footage pool.
type Asset struct {
	SourceID int64   `json:"source_id"`
	Path     string  `json:"path"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
}

// TotalDuration sums the durations of the given assets.
func TotalDuration(assets []Asset) float64 {
	total := 0.0
	for _, asset := range assets {
		total += asset.Duration
	}
	return total
}

// Encode serializes an asset pool for queue item storage.
func Encode(assets []Asset) (string, error) {
	data, err := json.Marshal(assets)
	if err != nil {
		return "", fmt.Errorf("encode assets: %w", err)
	}
	return string(data), nil
}

// Decode parses an asset pool stored on a queue item.
func Decode(raw string) ([]Asset, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("decode assets: empty payload")
	}
	var assets []Asset
	if err := json.Unmarshal([]byte(raw), &assets); err != nil {
		return nil, fmt.Errorf("decode assets: %w", err)
	}
	return assets, nil
}
