package userctx

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	fieldProfile         = "profile"
	fieldPreferences     = "preferences"
	fieldImportantTopics = "important_topics"
	fieldSessionSummary  = "session_summary"
	fieldLastUpdated     = "last_updated"

	// Written by earlier releases; read once and superseded on the next save.
	legacyProfile     = "user_profile"
	legacyPreferences = "learning_preferences"
	legacyUpdatedAt   = "updated_at"
)

// decode parses a persistence document. Keys it does not know are returned
// in extra so a later save writes them back untouched.
func decode(data []byte) (UserContext, map[string]json.RawMessage, error) {
	out := defaults()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return out, nil, err
	}
	if raw == nil {
		return out, nil, fmt.Errorf("document is null")
	}

	extra := maps.Clone(raw)
	take := func(key string, dst any) error {
		v, ok := raw[key]
		delete(extra, key)
		if !ok || string(v) == "null" {
			return nil
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		return nil
	}

	if err := take(fieldProfile, &out.Profile); err != nil {
		return defaults(), nil, err
	}
	if err := take(fieldPreferences, &out.Preferences); err != nil {
		return defaults(), nil, err
	}
	if err := take(fieldImportantTopics, &out.ImportantTopics); err != nil {
		return defaults(), nil, err
	}
	if err := take(fieldSessionSummary, &out.SessionSummary); err != nil {
		return defaults(), nil, err
	}
	if err := take(fieldLastUpdated, &out.LastUpdated); err != nil {
		return defaults(), nil, err
	}

	if _, ok := raw[fieldProfile]; !ok {
		if err := takeLegacy(raw[legacyProfile], out.Profile); err != nil {
			return defaults(), nil, fmt.Errorf("field %s: %w", legacyProfile, err)
		}
	}
	if _, ok := raw[fieldPreferences]; !ok {
		if err := takeLegacy(raw[legacyPreferences], out.Preferences); err != nil {
			return defaults(), nil, fmt.Errorf("field %s: %w", legacyPreferences, err)
		}
	}
	delete(extra, legacyProfile)
	delete(extra, legacyPreferences)

	out = out.clone()
	return out, extra, nil
}

// takeLegacy flattens a loosely typed legacy object into string values.
func takeLegacy(raw json.RawMessage, dst map[string]string) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var loose map[string]any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return err
	}
	for k, v := range loose {
		if k == legacyUpdatedAt || v == nil {
			continue
		}
		dst[k] = flatten(v)
	}
	return nil
}

func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func encode(c UserContext, extra map[string]json.RawMessage) ([]byte, error) {
	doc := make(map[string]any, len(extra)+5)
	for k, v := range extra {
		doc[k] = v
	}
	doc[fieldProfile] = c.Profile
	doc[fieldPreferences] = c.Preferences
	doc[fieldImportantTopics] = c.ImportantTopics
	doc[fieldSessionSummary] = c.SessionSummary
	doc[fieldLastUpdated] = c.LastUpdated.Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
