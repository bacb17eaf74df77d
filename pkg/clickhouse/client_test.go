package clickhouse

import (
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	got := buildDSN(ClientConfig{
		Host: "ch", Port: 9000, Database: "funds", User: "u", Password: "p",
		DialTimeout: 5 * time.Second, AsyncInsert: true, WaitForAsync: true,
	})
	want := "clickhouse://u:p@ch:9000/funds?async_insert=1&dial_timeout=5s&wait_for_async_insert=1"
	if got != want {
		t.Fatalf("dsn = %s, want %s", got, want)
	}

	got = buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "funds", User: "u", UseHTTP: true})
	if got != "http://u:@ch:8123/funds" {
		t.Fatalf("http dsn = %s", got)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatalf("expected error without host")
	}
}
