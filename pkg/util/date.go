package util

import (
    "strconv"
    "strings"
    "time"
)

// zone-less layouts emitted by Python's datetime.isoformat() on naive values
var naiveLayouts = []string{
    "2006-01-02T15:04:05.999999999",
    "2006-01-02T15:04:05",
    "2006-01-02 15:04:05.999999999",
    "2006-01-02 15:04:05",
}

// ParseTime tries RFC3339, RFC3339Nano, zone-less ISO-8601 (read as UTC), and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    for _, layout := range naiveLayouts {
        if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
            return t, true
        }
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}
