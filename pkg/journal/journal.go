package journal

import (
	"encoding/json"

	"github.com/DiverOfDark/kubernetes-annotation-from-secret-applier/pkg/model"
	"github.com/DiverOfDark/kubernetes-annotation-from-secret-applier/pkg/util"
)

// Decode reads the journal stored under stateKey. A missing, empty, or
// malformed journal yields an empty one: forward progress is preferred over
// perfect history, and the journal is rebuilt on the next staged change.
func Decode(annotations model.Annotations, stateKey string) model.Journal {
	raw, ok := annotations[stateKey]
	if !ok || raw == "" {
		return model.Journal{}
	}
	journal := model.Journal{}
	if err := json.Unmarshal([]byte(raw), &journal); err != nil {
		return model.Journal{}
	}
	return journal
}

// Encode serializes the journal to its annotation form. encoding/json emits
// map keys in sorted order, so the encoding is stable across reconciles.
func Encode(journal model.Journal) string {
	return string(util.MustMarshalJSON(journal))
}

// Merge overlays the originals of staged rewrites onto the existing journal.
// Neither input is modified. Entries for keys that no longer stage a rewrite
// are carried over unchanged; stale entries are never pruned.
func Merge(existing model.Journal, staged map[string]model.Rewrite) model.Journal {
	merged := make(model.Journal, len(existing)+len(staged))
	for key, value := range existing {
		merged[key] = value
	}
	for key, rewrite := range staged {
		merged[key] = rewrite.Original
	}
	return merged
}
