package insights

import (
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
)

// mustSchemaJSON reflects T into a closed JSON schema and renders it as
// indented JSON for embedding into an instruction prompt. Closed means no
// additional properties and every declared property required. The rendered
// bytes must be identical across runs and releases: the extraction prompt
// embeds them verbatim and output-format stability depends on the prompt not
// drifting.
func mustSchemaJSON[T any]() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	raw, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		panic(err)
	}
	closeSchema(schema)
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(b)
}

// closeSchema walks a schema object and closes every object node: additional
// properties off, all declared properties required, the required list sorted
// so the serialized form is deterministic.
func closeSchema(node map[string]any) {
	if t, _ := node["type"].(string); t == "object" {
		node["additionalProperties"] = false
		if props, ok := node["properties"].(map[string]any); ok && len(props) > 0 {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			sort.Strings(required)
			node["required"] = required
		}
	}

	if props, ok := node["properties"].(map[string]any); ok {
		for _, p := range props {
			if child, ok := p.(map[string]any); ok {
				closeSchema(child)
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		closeSchema(items)
	}
	if extra, ok := node["additionalProperties"].(map[string]any); ok {
		closeSchema(extra)
	}
}
