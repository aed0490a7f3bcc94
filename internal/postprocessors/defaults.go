package postprocessors

import (
	"fmt"
	"math"

	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/postprocessors/metadata"
	"github.com/custodia-labs/recall/internal/postprocessors/recency"
	"github.com/custodia-labs/recall/internal/postprocessors/window"
)

// Built-in processor names, as used in domain.PipelineConfig.
const (
	Window              = "window"
	MetadataReplacement = "metadata_replacement"
	Recency             = "recency"
)

// RegisterDefaults adds the built-in processors to r.
func RegisterDefaults(r *Registry) {
	r.Register(Window, newWindow)
	r.RegisterNode(MetadataReplacement, newMetadataReplacement)
	r.RegisterNode(Recency, newRecency)
}

// newWindow reads window_size (sentences each side of the focal sentence).
func newWindow(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []window.Option
	size, ok, err := configInt(cfg, "window_size")
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, window.WithWindowSize(size))
	}
	return window.New(opts...), nil
}

func newMetadataReplacement(cfg map[string]any) (driven.NodePostProcessor, error) {
	var opts []metadata.Option
	switch key := cfg["target_key"].(type) {
	case nil:
	case string:
		opts = append(opts, metadata.WithTargetKey(key))
	default:
		return nil, fmt.Errorf("target_key: want string, got %T", key)
	}
	return metadata.New(opts...), nil
}

// newRecency reads top_n and shared_missing_id.
func newRecency(cfg map[string]any) (driven.NodePostProcessor, error) {
	var opts []recency.Option
	n, ok, err := configInt(cfg, "top_n")
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, recency.WithTopN(n))
	}
	if shared, _ := cfg["shared_missing_id"].(bool); shared {
		opts = append(opts, recency.WithMissingIDPolicy(recency.MissingIDShared))
	}
	return recency.New(opts...), nil
}

// configInt reads an integer that may have been decoded from TOML (int64)
// or JSON (float64). A missing key is not an error.
func configInt(cfg map[string]any, key string) (int, bool, error) {
	switch v := cfg[key].(type) {
	case nil:
		return 0, false, nil
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, fmt.Errorf("%s: %v is not a whole number", key, v)
		}
		return int(v), true, nil
	default:
		return 0, false, fmt.Errorf("%s: want integer, got %T", key, v)
	}
}
