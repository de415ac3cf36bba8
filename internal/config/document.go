package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// readDocument parses a config file into a generic map, choosing the parser
// from the file extension.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	doc := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml", "":
		err = toml.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &doc)
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return normalizeValue(doc).(map[string]any), nil
}

// normalizeValue rewrites TOML local date/time values as strings so they
// survive the YAML round trip used for decoding.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeValue(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeValue(item)
		}
		return v
	case []map[string]any:
		for i, item := range v {
			v[i] = normalizeValue(item).(map[string]any)
		}
		return v
	case toml.LocalDate:
		return v.String()
	case toml.LocalTime:
		return v.String()
	case toml.LocalDateTime:
		return v.String()
	}
	return value
}

// deepMerge overlays src onto dst. Nested maps merge key by key; any other
// value in src replaces the one in dst.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
	return dst
}

// decodeInto maps a generic document onto a typed struct through a YAML
// round trip so that every input format shares one set of field tags and
// unknown keys are ignored.
func decodeInto(doc map[string]any, out any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

// DecodeMap decodes a raw step map into a typed configuration struct using
// its yaml tags. Unknown keys are ignored.
func DecodeMap(raw map[string]any, out any) error {
	return decodeInto(raw, out)
}
