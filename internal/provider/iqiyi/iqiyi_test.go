package iqiyi

import (
	"bytes"
	"compress/zlib"
	"testing"
)

const sampleCommentXML = `<?xml version="1.0" encoding="UTF-8"?>
<danmu>
  <data>
    <entry>
      <list>
        <bulletInfo>
          <contentId>123</contentId>
          <content>hello</content>
          <showTime>15</showTime>
          <color>ffffff</color>
          <userInfo><uid>u1</uid></userInfo>
        </bulletInfo>
      </list>
    </entry>
  </data>
</danmu>`

func zlibCompress(t *testing.T, raw string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(raw)); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeSegment(t *testing.T) {
	compressed := zlibCompress(t, sampleCommentXML)

	comments, err := decodeSegment(compressed)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	if comments[0].M != "hello" {
		t.Errorf("expected message 'hello', got %q", comments[0].M)
	}
	if comments[0].CID != "123" {
		t.Errorf("expected cid '123', got %q", comments[0].CID)
	}
}

func TestDecodeSegmentEmptyPayload(t *testing.T) {
	compressed := zlibCompress(t, "")
	comments, err := decodeSegment(compressed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected 0 comments for empty payload, got %d", len(comments))
	}
}

func TestDecodeSegmentCorrupt(t *testing.T) {
	if _, err := decodeSegment([]byte("not zlib data")); err == nil {
		t.Fatal("expected error for corrupt segment")
	}
}
