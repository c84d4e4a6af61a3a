package config

import (
    "fmt"
    "math"
    "path/filepath"
    "sort"
    "strings"

    "github.com/spf13/viper"

    "github.com/vsujeesh/CoSimIO/pkg/metadata"
)

// LoadSettings reads a settings file (yaml or json, by extension) into
// Metadata. Nested maps become nested Metadata. JSON has a single number
// type, so integral JSON numbers are stored as Int.
func LoadSettings(path string) (*metadata.Metadata, error) {
    v := viper.New()
    v.SetConfigFile(path)
    if err := v.ReadInConfig(); err != nil { return nil, fmt.Errorf("read settings %s: %w", path, err) }
    jsonNumbers := strings.EqualFold(filepath.Ext(path), ".json")
    return toMetadata(v.AllSettings(), jsonNumbers, path)
}

func toMetadata(in map[string]any, jsonNumbers bool, where string) (*metadata.Metadata, error) {
    keys := make([]string, 0, len(in))
    for k := range in { keys = append(keys, k) }
    sort.Strings(keys)
    m := metadata.New()
    for _, k := range keys {
        switch v := in[k].(type) {
        case string:
            m.SetString(k, v)
        case bool:
            m.SetBool(k, v)
        case int:
            m.SetInt(k, v)
        case int64:
            m.SetInt(k, int(v))
        case uint64:
            if v > math.MaxInt64 { return nil, fmt.Errorf("%s: %s overflows int", where, k) }
            m.SetInt(k, int(v))
        case float64:
            if jsonNumbers && v == math.Trunc(v) && math.Abs(v) < 1<<53 {
                m.SetInt(k, int(v))
            } else {
                m.SetDouble(k, v)
            }
        case map[string]any:
            sub, err := toMetadata(v, jsonNumbers, where+"."+k)
            if err != nil { return nil, err }
            m.SetMetadata(k, sub)
        default:
            return nil, fmt.Errorf("%s: %s has unsupported value type %T", where, k, v)
        }
    }
    return m, nil
}
