package helm

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

// Values represents chart values as a map.
type Values map[string]any

// Merge deep-merges value maps with later maps taking precedence.
// Nested maps are merged key by key; any other value is replaced.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		mergeInto(result, m)
	}
	return result
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeInto(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}

// ToYAML converts values to YAML bytes.
func (v Values) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode values to YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// FromYAML parses YAML bytes into Values. The sigs.k8s.io decoder
// round-trips through JSON, so nested maps come out string-keyed the
// way the Helm action API expects.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := sigsyaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	return values, nil
}
