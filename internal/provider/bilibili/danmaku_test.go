package bilibili

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func encodeDanmakuElem(id int64, progress int32, mode int32, color uint32, content string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(id))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(progress))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(mode))
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(color))
	b = protowire.AppendTag(b, 7, protowire.BytesType)
	b = protowire.AppendString(b, content)
	return b
}

func encodeDmSegMobileReply(elems [][]byte) []byte {
	var b []byte
	for _, e := range elems {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, e)
	}
	return b
}

func TestDecodeDanmakuElem(t *testing.T) {
	raw := encodeDanmakuElem(42, 10500, 1, 16777215, "hello")
	elem, err := decodeDanmakuElem(raw)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if elem.id != 42 || elem.progress != 10500 || elem.mode != 1 || elem.color != 16777215 || elem.content != "hello" {
		t.Fatalf("unexpected elem: %+v", elem)
	}
}

func TestDecodeDmSegMobileReply(t *testing.T) {
	raw := encodeDmSegMobileReply([][]byte{
		encodeDanmakuElem(1, 1000, 1, 0, "a"),
		encodeDanmakuElem(2, 2000, 1, 0, "b"),
	})
	elems, err := decodeDmSegMobileReply(raw)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(elems) != 2 {
		t.Fatalf("expected 2 elems, got %d", len(elems))
	}
}

// TestDedupeAndCollapse matches the exact scenario: ids {1,2,3,4},
// contents ["草","草","草","666"], progress [10000,10500,11000,12000]
// should collapse into two comments.
func TestDedupeAndCollapse(t *testing.T) {
	elems := []danmakuElem{
		{id: 1, progress: 10000, mode: 1, color: 0, content: "草"},
		{id: 2, progress: 10500, mode: 1, color: 0, content: "草"},
		{id: 3, progress: 11000, mode: 1, color: 0, content: "草"},
		{id: 4, progress: 12000, mode: 1, color: 0, content: "666"},
	}

	out := dedupeAndCollapse(elems)
	if len(out) != 2 {
		t.Fatalf("expected 2 collapsed comments, got %d: %+v", len(out), out)
	}

	if out[0].M != "草 X3" {
		t.Errorf("expected collapsed content %q, got %q", "草 X3", out[0].M)
	}
	if out[0].P[:6] != "10.000" {
		t.Errorf("expected p to start with earliest progress 10.000, got %q", out[0].P)
	}

	if out[1].M != "666" {
		t.Errorf("expected uncollapsed content %q, got %q", "666", out[1].M)
	}
	if out[1].P[:6] != "12.000" {
		t.Errorf("expected p to start with 12.000, got %q", out[1].P)
	}
}

// TestDedupeAndCollapseCrossPoolDuplicateID verifies the same id seen
// across two pools contributes only once.
func TestDedupeAndCollapseCrossPoolDuplicateID(t *testing.T) {
	elems := []danmakuElem{
		{id: 5, progress: 500, mode: 1, color: 0, content: "hi"},
		{id: 5, progress: 500, mode: 1, color: 0, content: "hi"},
	}
	out := dedupeAndCollapse(elems)
	if len(out) != 1 {
		t.Fatalf("expected 1 comment after id dedupe, got %d", len(out))
	}
	if out[0].M != "hi" {
		t.Errorf("expected unmodified single content, got %q", out[0].M)
	}
}

func TestDedupeAndCollapseEmpty(t *testing.T) {
	out := dedupeAndCollapse(nil)
	if len(out) != 0 {
		t.Fatalf("expected 0 comments for empty input, got %d", len(out))
	}
}

func TestSplitEpisodeID(t *testing.T) {
	aid, cid, err := splitEpisodeID("12345,67890")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aid != 12345 || cid != 67890 {
		t.Fatalf("unexpected aid/cid: %d, %d", aid, cid)
	}

	if _, _, err := splitEpisodeID("malformed"); err == nil {
		t.Fatal("expected error for malformed episode id")
	}
}
