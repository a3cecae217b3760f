package tmdbautomap

import (
	"testing"

	"github.com/danmaku-hub/aggregator/internal/metadata/tmdb"
)

func TestSelectEpisodeGroupDropsPlainSeasonNames(t *testing.T) {
	groups := []tmdb.EpisodeGroup{
		{ID: "g1", Name: "Season 1"},
		{ID: "g2", Name: "Specials"},
	}
	got, ok := selectEpisodeGroup(groups)
	if !ok {
		t.Fatal("expected a group to be selected")
	}
	if got.ID != "g2" {
		t.Fatalf("expected Season 1 to be dropped and Specials chosen, got %q", got.ID)
	}
}

func TestSelectEpisodeGroupPrefersExactSeasonsName(t *testing.T) {
	groups := []tmdb.EpisodeGroup{
		{ID: "g1", Name: "Absolute Order"},
		{ID: "g2", Name: "Seasons"},
		{ID: "g3", Name: "All Seasons Extended"},
	}
	got, ok := selectEpisodeGroup(groups)
	if !ok {
		t.Fatal("expected a group to be selected")
	}
	if got.ID != "g2" {
		t.Fatalf("expected exact \"Seasons\" match, got %q", got.ID)
	}
}

func TestSelectEpisodeGroupFallsBackToContainsSeasons(t *testing.T) {
	groups := []tmdb.EpisodeGroup{
		{ID: "g1", Name: "Absolute Order"},
		{ID: "g2", Name: "All Seasons Extended"},
	}
	got, ok := selectEpisodeGroup(groups)
	if !ok {
		t.Fatal("expected a group to be selected")
	}
	if got.ID != "g2" {
		t.Fatalf("expected name-containing-seasons match, got %q", got.ID)
	}
}

func TestSelectEpisodeGroupFallsBackToFirstRemaining(t *testing.T) {
	groups := []tmdb.EpisodeGroup{
		{ID: "g1", Name: "Season 1"},
		{ID: "g2", Name: "Absolute Order"},
		{ID: "g3", Name: "Production Order"},
	}
	got, ok := selectEpisodeGroup(groups)
	if !ok {
		t.Fatal("expected a group to be selected")
	}
	if got.ID != "g2" {
		t.Fatalf("expected first remaining group, got %q", got.ID)
	}
}

func TestSelectEpisodeGroupAllDropped(t *testing.T) {
	groups := []tmdb.EpisodeGroup{
		{ID: "g1", Name: "Season 1"},
		{ID: "g2", Name: "season 2"},
	}
	_, ok := selectEpisodeGroup(groups)
	if ok {
		t.Fatal("expected no eligible group when every name is a plain season label")
	}
}

func TestBuildMappingsOrdersBySeasonOrderAndAssignsFields(t *testing.T) {
	detail := &tmdb.EpisodeGroupDetail{
		ID: "g1",
		Groups: []tmdb.EpisodeGroupSeason{
			{
				Name:  "Season Two",
				Order: 2,
				Episodes: []tmdb.GroupEpisode{
					{ID: 201, SeasonNumber: 2, EpisodeNumber: 1, Order: 10},
					{ID: 202, SeasonNumber: 2, EpisodeNumber: 2, Order: 11},
				},
			},
			{
				Name:  "Season One",
				Order: 1,
				Episodes: []tmdb.GroupEpisode{
					{ID: 101, SeasonNumber: 1, EpisodeNumber: 1, Order: 0},
				},
			},
		},
	}

	mappings := buildMappings("tv-1", "g1", detail)
	if len(mappings) != 3 {
		t.Fatalf("expected 3 mapping rows, got %d", len(mappings))
	}

	if mappings[0].CustomSeasonNumber != 1 || mappings[0].TmdbEpisodeID != "101" {
		t.Fatalf("expected season-order-1 episode first, got %+v", mappings[0])
	}
	if mappings[0].AbsoluteEpisodeNumber != 1 {
		t.Fatalf("expected absolute episode number order+1=1, got %d", mappings[0].AbsoluteEpisodeNumber)
	}
	if mappings[0].CustomEpisodeNumber != 1 {
		t.Fatalf("expected 1-based index within season, got %d", mappings[0].CustomEpisodeNumber)
	}

	if mappings[1].CustomSeasonNumber != 2 || mappings[1].CustomEpisodeNumber != 1 {
		t.Fatalf("expected first episode of season-order-2 next, got %+v", mappings[1])
	}
	if mappings[2].CustomEpisodeNumber != 2 {
		t.Fatalf("expected second episode of season-order-2 last, got %+v", mappings[2])
	}
}

func TestExtractAliasesCountryCodeMapping(t *testing.T) {
	titles := []tmdb.AlternativeTitle{
		{ISO3166_1: "GB", Title: "British Title"},
		{ISO3166_1: "US", Title: "American Title"},
		{ISO3166_1: "JP", Title: "日本語タイトル"},
		{ISO3166_1: "JP", Title: "Nihongo Title", Type: "Romaji"},
		{ISO3166_1: "CN", Title: "中文标题一"},
		{ISO3166_1: "HK", Title: "中文标题二"},
		{ISO3166_1: "TW", Title: "中文标题三"},
	}

	aliases := extractAliases(42, titles)
	if aliases.EN != "American Title" {
		t.Fatalf("expected US title to take precedence over GB, got %q", aliases.EN)
	}
	if aliases.JP != "日本語タイトル" {
		t.Fatalf("expected non-romaji JP title, got %q", aliases.JP)
	}
	if aliases.Romaji != "Nihongo Title" {
		t.Fatalf("expected romaji title, got %q", aliases.Romaji)
	}
	if aliases.CN1 != "中文标题一" || aliases.CN2 != "中文标题二" || aliases.CN3 != "中文标题三" {
		t.Fatalf("expected three cn slots filled in encounter order, got %+v", aliases)
	}
}

func TestExtractAliasesFallsBackToGBWhenNoUSTitle(t *testing.T) {
	titles := []tmdb.AlternativeTitle{
		{ISO3166_1: "GB", Title: "British Title"},
	}
	aliases := extractAliases(1, titles)
	if aliases.EN != "British Title" {
		t.Fatalf("expected GB fallback for EN slot, got %q", aliases.EN)
	}
}

func TestCleanAliasStripsMoviePhrasesAndTrailingPunctuation(t *testing.T) {
	got := cleanAlias("Some Title 劇場版：")
	if got != "Some Title" {
		t.Fatalf("expected movie-phrase and trailing punctuation stripped, got %q", got)
	}
}
