package episodekey_test

import (
	"testing"

	"tellmemore/internal/episodekey"
)

func TestNewAndString(t *testing.T) {
	key, err := episodekey.New("Finance", 7)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if key.String() != "finance_007" {
		t.Fatalf("unexpected key: %q", key.String())
	}

	key, err = episodekey.New("True Crime", 1234)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if key.String() != "true-crime_1234" {
		t.Fatalf("expected sequence to widen past three digits, got %q", key.String())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := episodekey.New("  ", 1); err == nil {
		t.Fatal("expected empty topic to be rejected")
	}
	if _, err := episodekey.New("finance", 0); err == nil {
		t.Fatal("expected zero sequence to be rejected")
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		topic string
		seq   int
		ok    bool
	}{
		{"finance_003", "finance", 3, true},
		{"true-crime_120", "true-crime", 120, true},
		{" finance_010 ", "finance", 10, true},
		{"finance_01", "", 0, false},
		{"finance", "", 0, false},
		{"Finance_003", "", 0, false},
		{"finance_000", "", 0, false},
		{"", "", 0, false},
	}
	for _, tc := range cases {
		key, ok := episodekey.Parse(tc.in)
		if ok != tc.ok {
			t.Errorf("Parse(%q): ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if key.Topic != tc.topic || key.Sequence != tc.seq {
			t.Errorf("Parse(%q) = %+v, want topic=%q seq=%d", tc.in, key, tc.topic, tc.seq)
		}
	}
}

func TestNormalizeTopic(t *testing.T) {
	cases := map[string]string{
		"Finance":        "finance",
		"True Crime":     "true-crime",
		"  tech_news  ":  "tech-news",
		"U.S. Politics":  "u-s-politics",
		"--":             "",
		"Déjà Vu":        "déjà-vu",
		"mixed--spaces ": "mixed-spaces",
	}
	for in, want := range cases {
		if got := episodekey.NormalizeTopic(in); got != want {
			t.Errorf("NormalizeTopic(%q) = %q, want %q", in, got, want)
		}
	}
}
