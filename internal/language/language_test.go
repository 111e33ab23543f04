package language

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		hint string
		want string
		ok   bool
	}{
		{"en", "en", true},
		{"ENG", "en", true},
		{"pt-br", "pt-BR", true},
		{"English", "en", true},
		{" de ", "de", true},
		{"", "", false},
		{"not a language", "", false},
	}
	for _, tc := range cases {
		got, ok := Normalize(tc.hint)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tc.hint, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{"eng", "English", "pt-br", "", "bogus!", "EN"})
	want := []string{"en", "pt-BR"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeAll() = %v, want %v", got, want)
	}
	if NormalizeAll(nil) != nil {
		t.Fatal("NormalizeAll(nil) should be nil")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("en"); got != "English" {
		t.Fatalf("DisplayName(en) = %q", got)
	}
	if got := DisplayName(""); got != "Unknown" {
		t.Fatalf("DisplayName(\"\") = %q", got)
	}
}

func TestFromMetadata(t *testing.T) {
	if got := FromMetadata(map[string]string{"lang": "eng"}); got != "en" {
		t.Fatalf("FromMetadata(lang) = %q", got)
	}
	if got := FromMetadata(map[string]string{"source": "scanner"}); got != "" {
		t.Fatalf("FromMetadata(no hint) = %q", got)
	}
}
