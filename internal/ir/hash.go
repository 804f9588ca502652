package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainRecord = "tasklog/record/v1"
	DomainState  = "tasklog/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalEvent returns the canonical object form of an event.
func CanonicalEvent(e Event) map[string]any {
	return map[string]any{
		"kind":    e.Kind(),
		"payload": e.fields(),
	}
}

// RecordID computes the content-addressed ID of a logged record.
// Two logs holding the same events at the same seqs produce the same IDs.
func RecordID(r Record) (string, error) {
	if r.Event == nil {
		return "", fmt.Errorf("RecordID: nil event at seq %d", r.Seq)
	}
	obj := CanonicalEvent(r.Event)
	obj["seq"] = r.Seq

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// StateDigest hashes a state snapshot, task IDs included.
// Replay verification compares digests instead of whole states.
func StateDigest(s State) (string, error) {
	tasks := make([]any, len(s.Tasks))
	for i, t := range s.Tasks {
		tasks[i] = map[string]any{
			"id":           t.ID,
			"title":        t.Title,
			"is_favorited": t.IsFavorited,
		}
	}
	obj := map[string]any{
		"tasks":          tasks,
		"is_loading":     s.IsLoading,
		"is_input_valid": s.IsInputValid,
		"draft_input":    s.DraftInput,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("StateDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MustRecordID is like RecordID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordID(r Record) string {
	id, err := RecordID(r)
	if err != nil {
		panic(err)
	}
	return id
}

// MustStateDigest is like StateDigest but panics on error.
func MustStateDigest(s State) string {
	d, err := StateDigest(s)
	if err != nil {
		panic(err)
	}
	return d
}
