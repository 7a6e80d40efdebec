package formatter

import (
	"encoding/json"
	"fmt"

	"github.com/kataras/flinto-export/pkg/extractor"
)

// ToJSON encodes the metadata tree as tab-indented JSON followed by a newline.
func ToJSON(meta *extractor.Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(meta, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return append(data, '\n'), nil
}
