package badge

import (
	"encoding/json"
	"testing"
)

func TestShieldsJSON(t *testing.T) {
	out, err := ShieldsJSON("lighthouse", 0.874)
	if err != nil {
		t.Fatalf("ShieldsJSON: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("expected valid JSON, got error: %v", err)
	}

	if result["schemaVersion"] != float64(1) {
		t.Errorf("schemaVersion = %v, want 1", result["schemaVersion"])
	}
	if result["label"] != "lighthouse" {
		t.Errorf("label = %v, want lighthouse", result["label"])
	}
	if result["message"] != "87%" {
		t.Errorf("message = %v, want 87%%", result["message"])
	}
	if result["color"] != "yellowgreen" {
		t.Errorf("color = %v, want yellowgreen", result["color"])
	}
}
