package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Helpers shared by the document hash codecs. Scalar fields are written as
// strings; slices and maps are JSON inside a single hash field. Decoding is
// tolerant: a missing or malformed field yields the zero value so a partially
// written record never aborts a read path.

func hashBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func hashJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func hashTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UTC().Unix(), 10)
}

func parseBool(s string) bool { return s == "1" || s == "true" }

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func parseStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func parseList[T any](s string, dst *[]T) {
	if s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), dst)
}

func parseStringMap(s string) map[string]string {
	if s == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
