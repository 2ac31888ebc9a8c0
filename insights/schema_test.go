package insights

import (
	"encoding/json"
	"testing"
)

func TestMustSchemaJSON_ClosedAndDeterministic(t *testing.T) {
	t.Parallel()

	s1 := mustSchemaJSON[ExtractedItem]()
	s2 := mustSchemaJSON[ExtractedItem]()
	if s1 != s2 {
		t.Fatalf("schema rendering not byte-stable across calls")
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(s1), &schema); err != nil {
		t.Fatalf("unmarshal rendered schema: %v", err)
	}
	if ap, ok := schema["additionalProperties"].(bool); !ok || ap {
		t.Fatalf("additionalProperties=%v, want false", schema["additionalProperties"])
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties object")
	}
	required, ok := schema["required"].([]any)
	if !ok {
		t.Fatalf("schema has no required list")
	}
	if len(required) != len(props) {
		t.Fatalf("len(required)=%d, want %d (every property required)", len(required), len(props))
	}
	for i := 1; i < len(required); i++ {
		if required[i-1].(string) >= required[i].(string) {
			t.Fatalf("required list not sorted: %v", required)
		}
	}
	if _, ok := props["task"]; !ok {
		t.Fatalf("schema missing task property: %v", props)
	}
}
