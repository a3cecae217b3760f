package gamer

import "strings"

// simplifiedToTraditionalTab and its inverse cover the common-character
// subset relevant to anime titles (numerals, seasons, genre words).
// There is no OpenCC-equivalent conversion library anywhere in the
// example corpus; this hand-rolled table is the documented stdlib-only
// exception (see DESIGN.md).
var simplifiedToTraditionalTab = map[rune]rune{
	'国': '國', '际': '際', '龙': '龍', '剧': '劇', '场': '場',
	'动': '動', '画': '畫', '电': '電', '视': '視', '台': '臺',
	'学': '學', '园': '園', '实': '實', '战': '戰', '爱': '愛',
	'两': '兩', '个': '個', '们': '們', '经': '經', '历': '歷',
	'时': '時', '间': '間', '进': '進', '后': '後', '将': '將',
	'导': '導', '师': '師', '恋': '戀', '记': '記', '无': '無',
	'灵': '靈', '梦': '夢', '华': '華', '传': '傳', '说': '說',
	'贵': '貴', '宾': '賓', '队': '隊', '员': '員', '团': '團',
	'岁': '歲', '岛': '島', '众': '眾', '汉': '漢', '风': '風',
	'云': '雲', '气': '氣', '应': '應', '对': '對',
}

var traditionalToSimplifiedTab = invert(simplifiedToTraditionalTab)

func invert(m map[rune]rune) map[rune]rune {
	out := make(map[rune]rune, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func convert(s string, tab map[rune]rune) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if mapped, ok := tab[r]; ok {
			b.WriteRune(mapped)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// simplifiedToTraditional converts a search keyword before it is sent to
// Gamer, which indexes traditional-character titles (spec §4.1.6).
func simplifiedToTraditional(s string) string {
	return convert(s, simplifiedToTraditionalTab)
}

// traditionalToSimplified normalizes a title returned by Gamer back to
// simplified characters for consistent storage alongside other
// providers (spec §4.1.6).
func traditionalToSimplified(s string) string {
	return convert(s, traditionalToSimplifiedTab)
}
