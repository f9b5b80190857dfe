package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeOffset(t *testing.T) {
    got, ok := ParseTime("2024-10-10T10:10:10.123456+00:00")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Nanosecond() != 123456000 {
        t.Fatalf("unexpected fraction %d", got.Nanosecond())
    }
}

func TestParseTimeNaiveIsUTC(t *testing.T) {
    got, ok := ParseTime("2024-10-10T10:10:10.5")
    if !ok {
        t.Fatalf("expected ok")
    }
    want := time.Date(2024, 10, 10, 10, 10, 10, 500000000, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("want %v got %v", want, got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseIntDefault(t *testing.T) {
    if ParseIntDefault("", 7) != 7 {
        t.Fatalf("expected default for empty")
    }
    if ParseIntDefault("x", 7) != 7 {
        t.Fatalf("expected default for invalid")
    }
    if ParseIntDefault("42", 7) != 42 {
        t.Fatalf("expected parsed value")
    }
}
