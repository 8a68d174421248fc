package enrich

import (
	"encoding/json"
	"strings"

	"github.com/meltforce/repflow/internal/models"
)

// The exercise catalog API has drifted through several field-name conventions
// (camelCase, snake_case, PascalCase) and some deployments double-encode list
// fields as JSON strings. Normalization accepts every observed variant for
// the same logical field and coalesces them into one ExerciseDetails.

// canonicalKey folds a JSON key to lowercase with separators removed, so
// "muscleGroups", "muscle_groups" and "MuscleGroups" all collide.
func canonicalKey(k string) string {
	k = strings.ToLower(k)
	k = strings.ReplaceAll(k, "_", "")
	k = strings.ReplaceAll(k, "-", "")
	return k
}

var (
	nameKeys         = []string{"name", "exercisename", "title"}
	categoryKeys     = []string{"category", "exercisecategory", "type"}
	muscleGroupKeys  = []string{"musclegroups", "muscles", "primarymuscles", "targetmuscles"}
	equipmentKeys    = []string{"equipment", "equipmentneeded", "gear"}
	instructionKeys  = []string{"instructions", "steps", "howto"}
	tipKeys          = []string{"tips", "formtips", "cues"}
	mediaKeys        = []string{"mediaurls", "media", "images", "imageurls", "videourls", "videourl", "imageurl"}
)

// NormalizeDetails converts a raw exercise document into ExerciseDetails,
// falling back to the given name when the document carries none. It never
// fails: an unparseable document yields the minimal fallback annotation.
func NormalizeDetails(raw json.RawMessage, fallbackName string) *models.ExerciseDetails {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.FallbackDetails(fallbackName)
	}

	fields := make(map[string]json.RawMessage, len(doc))
	for k, v := range doc {
		fields[canonicalKey(k)] = v
	}

	d := &models.ExerciseDetails{
		Name:         firstString(fields, nameKeys),
		Category:     firstString(fields, categoryKeys),
		MuscleGroups: firstList(fields, muscleGroupKeys),
		Equipment:    firstList(fields, equipmentKeys),
		Instructions: firstList(fields, instructionKeys),
		Tips:         firstList(fields, tipKeys),
		MediaURLs:    collectLists(fields, mediaKeys),
	}
	if d.Name == "" {
		d.Name = fallbackName
	}
	return d
}

func firstString(fields map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func firstList(fields map[string]json.RawMessage, keys []string) []string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		if list := decodeStringList(raw); len(list) > 0 {
			return list
		}
	}
	return []string{}
}

// collectLists merges every matching alias instead of taking the first, since
// media may be split across imageUrl and videoUrl style fields.
func collectLists(fields map[string]json.RawMessage, keys []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		for _, v := range decodeStringList(raw) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// decodeStringList accepts a JSON array of strings, a JSON string containing
// a JSON-encoded array (double-encoded list), or a single plain string.
func decodeStringList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return compactList(list)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return compactList(list)
		}
	}
	return []string{s}
}

func compactList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
