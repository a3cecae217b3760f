package iqiyi

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"

	"github.com/danmaku-hub/aggregator/internal/domain"
)

type commentXML struct {
	XMLName xml.Name `xml:"danmu"`
	List    struct {
		Items []struct {
			ContentID string `xml:"contentId"`
			Content   string `xml:"content"`
			ShowTime  int    `xml:"showTime"`
			Color     string `xml:"color"`
			UserInfo  struct {
				UID string `xml:"uid"`
			} `xml:"userInfo"`
		} `xml:"bulletInfo"`
	} `xml:"data>entry>list"`
}

// GetComments fetches segment files 1..N for a tvid, zlib-decompressing
// and parsing the embedded XML comment list, stopping on 404, an empty
// decompressed payload, or a parse error (spec §4.1.3).
func (a *Adapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	tvid := providerEpisodeID
	if len(tvid) < 4 {
		return nil, fmt.Errorf("iqiyi: tvid %q too short", tvid)
	}
	last4 := tvid[len(tvid)-4:]
	dir1, dir2 := last4[:2], last4[2:]

	var out []domain.NormalizedComment
	for mat := 1; ; mat++ {
		url := fmt.Sprintf("%s/%s/%s/%s_300_%d.z", commentBaseURL, dir1, dir2, tvid, mat)

		if err := a.limiter.Wait(ctx); err != nil {
			return out, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return out, err
		}
		req.Header.Set("User-Agent", browserUA)

		resp, err := a.client.Do(req)
		if err != nil {
			return out, err
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			break
		}

		compressed, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return out, err
		}
		if len(compressed) == 0 {
			break
		}

		items, err := decodeSegment(compressed)
		if err != nil {
			break // parse error terminates the walk, spec §4.1.3
		}
		if len(items) == 0 {
			break
		}
		out = append(out, items...)

		if progress != nil {
			progress(min(99, mat*5), fmt.Sprintf("fetched segment %d", mat))
		}
	}

	if progress != nil {
		progress(100, fmt.Sprintf("fetched %d comments", len(out)))
	}
	return out, nil
}

func decodeSegment(compressed []byte) ([]domain.NormalizedComment, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var parsed commentXML
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	out := make([]domain.NormalizedComment, 0, len(parsed.List.Items))
	for _, item := range parsed.List.Items {
		seconds := float64(item.ShowTime)
		color := item.Color
		if color == "" {
			color = "ffffff"
		}
		out = append(out, domain.NormalizedComment{
			CID: item.ContentID,
			P:   fmt.Sprintf("%.3f,1,%s,[iqiyi]", seconds, color),
			M:   item.Content,
			T:   seconds,
		})
	}
	return out, nil
}
