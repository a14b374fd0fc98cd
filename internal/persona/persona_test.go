// internal/persona/persona_test.go
package persona

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  Persona
		ok    bool
	}{
		{"canonical", "developer", Developer, true},
		{"uppercase", "VISITOR", Visitor, true},
		{"spaces become hyphens", "hiring manager", HiringManager, true},
		{"underscores become hyphens", "technical_hiring_manager", TechnicalHiringManager, true},
		{"surrounding whitespace", "  developer  ", Developer, true},
		{"empty falls back to default", "", Default, true},
		{"unknown", "recruiter", "", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tc.input)
			if tc.ok && err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tc.input, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("Parse(%q) should have failed", tc.input)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestDirectivesAreDistinct(t *testing.T) {
	t.Parallel()

	seen := map[string]Persona{}
	for _, p := range All() {
		directive := p.Directive()
		if directive == "" {
			t.Errorf("persona %q has an empty directive", p)
		}
		if prior, dup := seen[directive]; dup {
			t.Errorf("personas %q and %q share a directive", prior, p)
		}
		seen[directive] = p
	}
}

func TestNamesMatchAll(t *testing.T) {
	t.Parallel()

	names := Names()
	all := All()
	if len(names) != len(all) {
		t.Fatalf("Names() has %d entries, All() has %d", len(names), len(all))
	}
	for i := range all {
		if names[i] != string(all[i]) {
			t.Errorf("position %d: %q vs %q", i, names[i], all[i])
		}
	}
}
