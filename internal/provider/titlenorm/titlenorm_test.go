package titlenorm

import "testing"

func TestNormalizeColon(t *testing.T) {
	got := Normalize("Show: Part One")
	want := "Show： Part One"
	if got != want {
		t.Fatalf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize("Show: Part One")
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("Normalize not idempotent: %q vs %q", once, twice)
	}
}

func TestIsJunk(t *testing.T) {
	cases := map[string]bool{
		"Show Ⅱ":       false,
		"Show S2 PV":   true,
		"Show - NCOP":  true,
		"Show 第二季":     false,
		"Show 预告":      true,
	}
	for title, want := range cases {
		if got := IsJunk(title); got != want {
			t.Errorf("IsJunk(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestExtractSeason(t *testing.T) {
	cases := []struct {
		title string
		want  int
	}{
		{"Show S03", 3},
		{"Show Season 3", 3},
		{"Show 第三季", 3},
		{"Show III", 3},
		{"Show Ⅲ", 3},
		{"Show", 1},
	}
	for _, c := range cases {
		got, _ := ExtractSeason(c.title)
		if got != c.want {
			t.Errorf("ExtractSeason(%q) = %d, want %d", c.title, got, c.want)
		}
	}
}

func TestIsMoviePhrase(t *testing.T) {
	if !IsMoviePhrase("Show 劇場版") {
		t.Fatal("expected movie phrase match")
	}
	if IsMoviePhrase("Show S2") {
		t.Fatal("unexpected movie phrase match")
	}
}
