package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-10-10", "20241010", "2024/10/10", "2024-10-10T10:10:10Z"} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("%q: expected ok", s)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: unexpected date %v", s, got)
		}
	}
}

func TestParseDateUnixMillis(t *testing.T) {
	ms := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	got, ok := ParseDate(strconv.FormatInt(ms, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UnixMilli() != ms {
		t.Fatalf("unexpected millis %v", got.UnixMilli())
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	if got := ParseDateDefault("", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
	if got := ParseDateDefault("not a date", def); !got.Equal(def) {
		t.Fatalf("expected default for garbage")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a@x.com; b@x.com ;;c@x.com", ";")
	if len(got) != 3 || got[0] != "a@x.com" || got[2] != "c@x.com" {
		t.Fatalf("unexpected split %v", got)
	}
	if got := SplitList("110020, 001051", ",;"); len(got) != 2 || got[1] != "001051" {
		t.Fatalf("unexpected split %v", got)
	}
}

func TestNormalizeFundCode(t *testing.T) {
	for in, want := range map[string]string{"110020.OF": "110020", " 001051 ": "001051", "161725": "161725"} {
		if got := NormalizeFundCode(in); got != want {
			t.Fatalf("%q: got %q, want %q", in, got, want)
		}
	}
}
