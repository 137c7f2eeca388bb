package normalize

import "testing"

func TestName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Divine Orb!", "divine orb"},
		{"  Chaos   Orb ", "chaos orb"},
		{"Maven's Writ", "mavens writ"},
		{"T1 Increased Maximum Life", "t1 increased maximum life"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Name(tc.in); got != tc.want {
			t.Errorf("Name(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{"Divine Orb!", "Saintly  Chainmail", "of the Seal"}
	for _, in := range inputs {
		once := Name(in)
		if twice := Name(once); twice != once {
			t.Errorf("Name not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Divine Orb", "divine-orb"},
		{"Maven's Writ", "mavens-writ"},
		{"Str/Int Armour", "str-int-armour"},
		{"--weird--", "weird"},
		{"Essence of Greed", "essence-of-greed"},
	}

	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestScoreMatch(t *testing.T) {
	if got := ScoreMatch("Chaos Orb", "Chaos Orb"); got != 1 {
		t.Errorf("exact match scored %v, want 1", got)
	}
	if got := ScoreMatch("Chaos", "Divine Orb"); got != 0 {
		t.Errorf("non-match scored %v, want 0", got)
	}

	// Substring matches reward shorter candidates.
	short := ScoreMatch("orb", "Divine Orb")
	long := ScoreMatch("orb", "Orb of Transmutation")
	if short <= long {
		t.Errorf("shorter candidate should outscore longer: %v <= %v", short, long)
	}
	if short <= 0 || short >= 1 {
		t.Errorf("substring score out of range: %v", short)
	}
}

func TestRoundCurrency(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		// 1.005 is stored just below the half step in float64, so it
		// rounds down.
		{1.005, 1.0},
		{1.006, 1.01},
		{1.004, 1.0},
		{0.125, 0.13},
		{180, 180},
		{0.333333, 0.33},
	}

	for _, tc := range cases {
		if got := RoundCurrency(tc.in); got != tc.want {
			t.Errorf("RoundCurrency(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestChaosToDivine(t *testing.T) {
	if got := ChaosToDivine(180, 180); got != 1 {
		t.Errorf("ChaosToDivine(180, 180) = %v, want 1", got)
	}
	if got := ChaosToDivine(90, 180); got != 0.5 {
		t.Errorf("ChaosToDivine(90, 180) = %v, want 0.5", got)
	}
	// Zero rate falls back to the default instead of dividing by zero.
	if got := ChaosToDivine(360, 0); got != 2 {
		t.Errorf("ChaosToDivine(360, 0) = %v, want 2", got)
	}
}
