package story

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, there!", "hello there"},
		{"  hello   there  ", "hello there"},
		{"HELLO THERE", "hello there"},
		{"Хәерле иртә!", "хәерле иртә"},
		{"чәй, зинһар...", "чәй зинһар"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Hello, there!", "Чәй бирегез, зинһар!", "  mixed   Case  "}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestMatchesRules(t *testing.T) {
	exact := Part{Kind: KindText, Answers: []string{"хәерле иртә"}, Match: MatchExact}
	if !matches(exact, Normalize("Хәерле иртә!")) {
		t.Error("exact match should accept normalized-equal input")
	}
	if matches(exact, Normalize("иртә хәерле булсын")) {
		t.Error("exact match should reject containment-only input")
	}

	contains := Part{Kind: KindPhrase, Answers: []string{"зур рәхмәт"}, Match: MatchContains}
	if !matches(contains, Normalize("Сезгә зур рәхмәт, әби!")) {
		t.Error("contains match should accept embedded answer")
	}

	tea := Part{Kind: KindTeaRequest, RequiredToken: "зинһар"}
	if !matches(tea, Normalize("чәй бирегез зинһар")) {
		t.Error("tea request should accept token")
	}
	if matches(tea, Normalize("чәй бирегез")) {
		t.Error("tea request should reject missing token")
	}
}
