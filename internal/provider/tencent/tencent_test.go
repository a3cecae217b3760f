package tencent

import "testing"

func TestToNormalizedCommentTimeOffsetMilliseconds(t *testing.T) {
	item := barrageItem{ID: "1", Content: "hi", TimeOffset: "10500"}
	item.ContentStyle.Color = "16777215"

	c := toNormalizedComment(item)
	if c.T != 10.5 {
		t.Fatalf("expected t=10.5, got %v", c.T)
	}
	if c.M != "hi" {
		t.Fatalf("expected message 'hi', got %q", c.M)
	}
}

func TestToNormalizedCommentPositionMode(t *testing.T) {
	top := barrageItem{ID: "2", TimeOffset: "0"}
	top.ContentStyle.Position = 2
	c := toNormalizedComment(top)
	if c.P != "0.000,5,16777215,[tencent]" {
		t.Fatalf("expected top-fixed mode 5, got %q", c.P)
	}

	bottom := barrageItem{ID: "3", TimeOffset: "0"}
	bottom.ContentStyle.Position = 3
	c = toNormalizedComment(bottom)
	if c.P != "0.000,4,16777215,[tencent]" {
		t.Fatalf("expected bottom-fixed mode 4, got %q", c.P)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if firstNonEmpty("a", "b") != "a" {
		t.Fatal("expected first value when non-empty")
	}
	if firstNonEmpty("", "b") != "b" {
		t.Fatal("expected fallback when first is empty")
	}
}
