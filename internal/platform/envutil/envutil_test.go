package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "nope")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 7 {
		t.Fatalf("Int=%d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 12 ")
	if got := Int("ENVUTIL_TEST_INT", 7); got != 12 {
		t.Fatalf("Int=%d", got)
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{"on": true, "YES": true, "0": false, "off": false, "": true, "maybe": true}
	for raw, want := range cases {
		t.Setenv("ENVUTIL_TEST_BOOL", raw)
		if got := Bool("ENVUTIL_TEST_BOOL", true); got != want {
			t.Fatalf("Bool(%q)=%v want %v", raw, got, want)
		}
	}
}

func TestDurations(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_MS", "250")
	if got := Millis("ENVUTIL_TEST_MS", time.Second); got != 250*time.Millisecond {
		t.Fatalf("Millis=%v", got)
	}
	t.Setenv("ENVUTIL_TEST_MS", "0")
	if got := Millis("ENVUTIL_TEST_MS", time.Second); got != 0 {
		t.Fatalf("Millis(0)=%v", got)
	}
	if got := Seconds("ENVUTIL_TEST_UNSET", 3*time.Second); got != 3*time.Second {
		t.Fatalf("Seconds default=%v", got)
	}
}
