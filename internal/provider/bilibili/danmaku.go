package bilibili

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/pkg/logger"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	segSoURL  = "https://api.bilibili.com/x/v2/dm/web/seg.so"
	playerURL = "https://api.bilibili.com/x/v2/dm/web/view"
)

// danmakuElem mirrors DanmakuElem's fields named in spec §4.1.1.
type danmakuElem struct {
	id       int64
	progress int32
	mode     int32
	color    uint32
	content  string
}

// GetComments discovers all danmaku pools for the episode (main cid plus
// subtitle-track cids), fetches segments for each until exhaustion,
// decodes the protobuf wire format, then dedupes and collapses
// repetitions across pools (spec §4.1.1).
func (a *Adapter) GetComments(ctx context.Context, providerEpisodeID string, progress domain.ProgressCallback) ([]domain.NormalizedComment, error) {
	aid, cid, err := splitEpisodeID(providerEpisodeID)
	if err != nil {
		return nil, err
	}

	pools := a.discoverPools(ctx, aid, cid)

	var all []danmakuElem
	for i, pool := range pools {
		elems, err := a.fetchPoolSegments(ctx, aid, pool)
		if err != nil {
			// per-pool failure is logged and skipped, not raised (spec §7)
			logger.Warnf("bilibili: fetch pool %d of aid %d: %v", pool, aid, err)
			continue
		}
		all = append(all, elems...)
		if progress != nil {
			progress(100*(i+1)/len(pools), fmt.Sprintf("fetched pool %d/%d", i+1, len(pools)))
		}
	}

	return dedupeAndCollapse(all), nil
}

func splitEpisodeID(providerEpisodeID string) (aid, cid int64, err error) {
	parts := strings.SplitN(providerEpisodeID, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bilibili: malformed episode id %q", providerEpisodeID)
	}
	aid, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	cid, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return aid, cid, nil
}

// discoverPools queries the player/v2 endpoint for subtitle-track cids
// alongside the main cid (spec §4.1.1 step a).
func (a *Adapter) discoverPools(ctx context.Context, aid, mainCid int64) []int64 {
	pools := []int64{mainCid}

	if err := a.limiter.Wait(ctx); err != nil {
		return pools
	}

	url := fmt.Sprintf("%s?aid=%d&oid=%d", playerURL, aid, mainCid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pools
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := a.client.Do(req)
	if err != nil {
		return pools
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			SubtitleData struct {
				Subtitles []struct {
					ID int64 `json:"id"`
				} `json:"subtitles"`
			} `json:"subtitle"`
		} `json:"data"`
	}
	if decodeJSON(resp, &body) != nil {
		return pools
	}
	for _, s := range body.Data.SubtitleData.Subtitles {
		if s.ID != 0 {
			pools = append(pools, s.ID)
		}
	}
	return pools
}

// fetchPoolSegments fetches seg.so segments 1..N for one pool until an
// empty segment, a 404, or a 304 (spec §4.1.1 step b).
func (a *Adapter) fetchPoolSegments(ctx context.Context, aid, cid int64) ([]danmakuElem, error) {
	var all []danmakuElem

	for segIdx := 1; ; segIdx++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return all, err
		}

		url := fmt.Sprintf("%s?oid=%d&pid=%d&segment_index=%d", segSoURL, cid, aid, segIdx)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return all, err
		}
		req.Header.Set("User-Agent", browserUA)

		resp, err := a.client.Do(req)
		if err != nil {
			return all, err
		}

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNotModified {
			resp.Body.Close()
			break
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return all, err
		}
		if len(body) == 0 {
			break
		}

		elems, err := decodeDmSegMobileReply(body)
		if err != nil {
			// parse error: logged at WARN, segment skipped (spec §7)
			logger.Warnf("bilibili: decode segment %d of cid %d: %v", segIdx, cid, err)
			continue
		}
		if len(elems) == 0 {
			break
		}
		all = append(all, elems...)
	}

	return all, nil
}

// decodeDmSegMobileReply parses the DmSegMobileReply wire format:
//
//	message DanmakuElem {
//	  int64 id = 1; int32 progress = 2; int32 mode = 3; int32 fontsize = 4;
//	  uint32 color = 5; string midHash = 6; string content = 7; int64 ctime = 8;
//	}
//	message DmSegMobileReply { repeated DanmakuElem elems = 1; int32 state = 2; }
//
// using protowire directly — no generated message type exists for this
// schema (spec §9: runtime descriptor construction has no value here,
// but neither does codegen without a checked-in .proto).
func decodeDmSegMobileReply(data []byte) ([]danmakuElem, error) {
	var out []danmakuElem

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			elemBytes, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]

			elem, err := decodeDanmakuElem(elemBytes)
			if err != nil {
				continue
			}
			out = append(out, elem)

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}

	return out, nil
}

func decodeDanmakuElem(data []byte) (danmakuElem, error) {
	var e danmakuElem

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return e, protowire.ParseError(n)
		}
		data = data[n:]

		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return e, protowire.ParseError(n)
			}
			e.id = int64(v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return e, protowire.ParseError(n)
			}
			e.progress = int32(v)
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return e, protowire.ParseError(n)
			}
			e.mode = int32(v)
			data = data[n:]
		case 5:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return e, protowire.ParseError(n)
			}
			e.color = uint32(v)
			data = data[n:]
		case 7:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return e, protowire.ParseError(n)
			}
			e.content = string(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return e, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}

	return e, nil
}

// dedupeAndCollapse dedupes by DanmakuElem.id across pools, then groups
// remaining by content text; groups of size >1 retain the earliest
// (min progress) entry with " X<count>" appended to its content (spec
// §4.1.1, scenario §8.3).
func dedupeAndCollapse(elems []danmakuElem) []domain.NormalizedComment {
	seen := make(map[int64]bool)
	var unique []danmakuElem
	for _, e := range elems {
		if seen[e.id] {
			continue
		}
		seen[e.id] = true
		unique = append(unique, e)
	}

	groups := make(map[string][]danmakuElem)
	var order []string
	for _, e := range unique {
		if _, ok := groups[e.content]; !ok {
			order = append(order, e.content)
		}
		groups[e.content] = append(groups[e.content], e)
	}

	out := make([]domain.NormalizedComment, 0, len(order))
	for _, content := range order {
		group := groups[content]
		sort.Slice(group, func(i, j int) bool { return group[i].progress < group[j].progress })

		head := group[0]
		text := content
		if len(group) > 1 {
			text = fmt.Sprintf("%s X%d", content, len(group))
		}

		out = append(out, domain.NormalizedComment{
			CID: strconv.FormatInt(head.id, 10),
			P:   fmt.Sprintf("%.3f,%d,%d,[bilibili]", float64(head.progress)/1000, head.mode, head.color),
			M:   text,
			T:   float64(head.progress) / 1000,
		})
	}
	return out
}
