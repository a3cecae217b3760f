// Package titlenorm implements the title cleaning, junk-title filtering,
// and season-extraction rules shared by every provider adapter (spec
// §4.1, §8).
package titlenorm

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// Normalize strips HTML and normalizes ':' to the fullwidth '：', per
// spec §3/§8 ("normalize maps ':' -> '：'"). Idempotent: applying it
// twice equals applying it once.
func Normalize(title string) string {
	title = htmlTagRe.ReplaceAllString(title, "")
	title = html.UnescapeString(title)
	title = strings.ReplaceAll(title, ":", "：")
	return strings.TrimSpace(title)
}

// junkRe excludes non-main-content markers: OP/ED/SP/OVA/PV/Trailer and
// their Chinese equivalents (spec §4.1).
var junkRe = regexp.MustCompile(`(?i)\b(OP|ED|SP|OVA|PV|Trailer|NCOP|NCED)\b|预告|花絮|彩蛋|menu|bonus`)

// IsJunk reports whether title matches the junk-title exclusion rule.
func IsJunk(title string) bool {
	return junkRe.MatchString(title)
}

var (
	seasonDigitRe   = regexp.MustCompile(`(?i)\bS(\d+)\b`)
	seasonWordRe    = regexp.MustCompile(`(?i)\bSeason\s+(\d+)\b`)
	seasonChineseRe = regexp.MustCompile(`第([一二三四五六七八九十\d]+)[季部]`)
	romanRe         = regexp.MustCompile(`\b(I{1,3}|IV|VI{0,3}|IX|XI{0,2}|XII)\b`)
	fullwidthRomanRe = regexp.MustCompile(`[ⅠⅡⅢⅣⅤⅥⅦⅧⅨⅩⅪⅫ]`)
)

var chineseNumerals = map[string]int{
	"一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
}

var romanNumerals = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5, "VI": 6,
	"VII": 7, "VIII": 8, "IX": 9, "X": 10, "XI": 11, "XII": 12,
}

var fullwidthRomanNumerals = map[rune]int{
	'Ⅰ': 1, 'Ⅱ': 2, 'Ⅲ': 3, 'Ⅳ': 4, 'Ⅴ': 5, 'Ⅵ': 6,
	'Ⅶ': 7, 'Ⅷ': 8, 'Ⅸ': 9, 'Ⅹ': 10, 'Ⅺ': 11, 'Ⅻ': 12,
}

// moviePhraseRe matches the theatrical-release markers spec §4.6 uses to
// coerce a candidate's kind to movie regardless of its nominal season.
var moviePhraseRe = regexp.MustCompile(`剧场版|劇場版|movie|映画`)

// IsMoviePhrase reports whether title contains a theatrical-release
// marker (spec §4.6 step 3).
func IsMoviePhrase(title string) bool {
	return moviePhraseRe.MatchString(strings.ToLower(title))
}

// ExtractSeason parses a season number out of a raw title using the
// rule-set of spec §4.1/§8: S\d+ | Season \d+ | 第.+[季部] | roman
// numerals I-XII | fullwidth Ⅰ-Ⅻ; default 1. The base title (with the
// season marker removed) is also returned.
func ExtractSeason(title string) (season int, base string) {
	if m := seasonDigitRe.FindStringSubmatch(title); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, strings.TrimSpace(seasonDigitRe.ReplaceAllString(title, ""))
		}
	}
	if m := seasonWordRe.FindStringSubmatch(title); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, strings.TrimSpace(seasonWordRe.ReplaceAllString(title, ""))
		}
	}
	if m := seasonChineseRe.FindStringSubmatch(title); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, strings.TrimSpace(seasonChineseRe.ReplaceAllString(title, ""))
		}
		if n, ok := chineseNumerals[m[1]]; ok {
			return n, strings.TrimSpace(seasonChineseRe.ReplaceAllString(title, ""))
		}
	}
	if loc := fullwidthRomanRe.FindStringIndex(title); loc != nil {
		r := []rune(title[loc[0]:loc[1]])[0]
		if n, ok := fullwidthRomanNumerals[r]; ok {
			return n, strings.TrimSpace(fullwidthRomanRe.ReplaceAllString(title, ""))
		}
	}
	if m := romanRe.FindString(title); m != "" {
		if n, ok := romanNumerals[m]; ok {
			return n, strings.TrimSpace(strings.Replace(title, m, "", 1))
		}
	}

	return 1, title
}
