package gamer

import "testing"

func TestSimplifiedToTraditionalRoundTrip(t *testing.T) {
	simplified := "国际动画"
	traditional := simplifiedToTraditional(simplified)
	if traditional == simplified {
		t.Fatal("expected conversion to change mapped characters")
	}
	back := traditionalToSimplified(traditional)
	if back != simplified {
		t.Fatalf("expected round trip to restore %q, got %q", simplified, back)
	}
}

func TestConvertLeavesUnmappedRunesUnchanged(t *testing.T) {
	if got := simplifiedToTraditional("hello123"); got != "hello123" {
		t.Fatalf("expected unmapped ascii unchanged, got %q", got)
	}
}

type fakeCookieStore struct {
	cookie string
	set    string
}

func (f *fakeCookieStore) ProviderCookie(provider, fallback string) string {
	if f.cookie != "" {
		return f.cookie
	}
	return fallback
}

func (f *fakeCookieStore) SetProviderCookie(provider, cookie string) error {
	f.set = cookie
	return nil
}

func TestAdapterCookie(t *testing.T) {
	kv := &fakeCookieStore{cookie: "session=abc"}
	a := New(kv)
	if got := a.cookie(); got != "session=abc" {
		t.Fatalf("expected cookie from store, got %q", got)
	}
}
