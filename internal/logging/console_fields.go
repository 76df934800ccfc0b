package logging

import (
	"log/slog"
	"strings"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// Keys listed here are printed first, in this order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"card_name",
	"set_name",
	FieldSide,
	FieldProgressPercent,
	FieldProgressETA,
	"processed",
	"total",
	"computed",
	"skipped",
	"unresolved",
	"failed",
	"candidates",
	"incomplete",
	"score",
	"error",
	FieldErrorHint,
	FieldImpact,
	"duration",
	"reason",
}

// selectInfoFields returns formatted fields and a count of hidden entries.
// limit=0 means no limit. includeDebug keeps keys that are normally hidden.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if includeDebug {
		limit = 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	add := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipInfoKey(attr.key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		if limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: formatValueForKey(attr.key, attr.value)})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				add(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			add(idx)
		}
	}
	return result, hidden
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case isPercentKey(key) && v.Kind() == slog.KindFloat64:
		return formatPercent(v.Float64())
	case v.Kind() == slog.KindDuration:
		return formatDurationHuman(v.Duration())
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" && len(value) > 200 {
		value = value[:200] + "…"
	}
	return value
}

func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent")
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldRunID, FieldStage:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldHashFunction, FieldImagePath, "fingerprint", "digest":
		return true
	}
	return strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir")
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case FieldProgressPercent:
		return "Progress"
	case FieldProgressETA:
		return "ETA"
	case FieldCardID:
		return "Card"
	case "card_name":
		return "Name"
	case "set_name":
		return "Set"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}
