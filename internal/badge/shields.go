package badge

import (
	"encoding/json"
	"fmt"
	"math"
)

type shieldsEndpoint struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// ShieldsJSON returns a shields.io endpoint document showing score as a percentage.
func ShieldsJSON(label string, score float64) ([]byte, error) {
	_, color := Grade(score)
	data := shieldsEndpoint{
		SchemaVersion: 1,
		Label:         label,
		Message:       fmt.Sprintf("%d%%", int(math.Round(score*100))),
		Color:         color,
	}
	return json.MarshalIndent(data, "", "  ")
}
