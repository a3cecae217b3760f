package mgtv

import "testing"

func TestSplitCidVid(t *testing.T) {
	cid, vid, err := splitCidVid("123,456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cid != "123" || vid != "456" {
		t.Fatalf("unexpected split: %q, %q", cid, vid)
	}

	if _, _, err := splitCidVid("malformed"); err == nil {
		t.Fatal("expected error for malformed episode id")
	}
}

func TestToNormalizedCommentDefaultColor(t *testing.T) {
	c := toNormalizedComment(cdnSegmentItem{Time: 5000, Content: "hi"})
	if c.P != "5.000,1,16777215,[mgtv]" {
		t.Fatalf("unexpected p: %q", c.P)
	}
}

func TestVideoTotalMinutesFallsBackToOne(t *testing.T) {
	info := &videoInfoResponse{}
	if got := videoTotalMinutes(info); got != 1 {
		t.Fatalf("expected fallback of 1 minute, got %d", got)
	}
}
