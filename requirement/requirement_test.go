package requirement

import (
	"slices"
	"testing"

	"github.com/wheelhouse-dev/wheelhouse/pyver"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"libA", "liba"},
		{"Lib_A", "lib-a"},
		{"lib.a", "lib-a"},
		{"lib--__..a", "lib-a"},
		{"  LibA  ", "liba"},
		{"already-canonical", "already-canonical"},
	}

	for _, tt := range tests {
		if got := CanonicalName(tt.input); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input      string
		wantErr    bool
		wantName   string
		wantExtras []string
		wantMarker bool
	}{
		{"libA", false, "liba", nil, false},
		{"libA>=1.2", false, "liba", nil, false},
		{"libA >=1.2, <2.0", false, "liba", nil, false},
		{"libA (>=1.2)", false, "liba", nil, false},
		{"libA[tls]", false, "liba", []string{"tls"}, false},
		{"libA[tls,cli]>=1.2", false, "liba", []string{"cli", "tls"}, false},
		{"libA[TLS, tls, cli]", false, "liba", []string{"cli", "tls"}, false},
		{"libA[]", false, "liba", nil, false},
		{`libA; python_version >= "3.8"`, false, "liba", nil, true},
		{`libA[cli]>=1.0; sys_platform == "linux"`, false, "liba", []string{"cli"}, true},
		// Invalid forms
		{"", true, "", nil, false},
		{"[tls]", true, "", nil, false},
		{"libA[tls", true, "", nil, false},
		{"libA>=", true, "", nil, false},
		{`libA; python_version >`, true, "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			req, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if req.Name != tt.wantName {
				t.Errorf("Parse(%q).Name = %q, want %q", tt.input, req.Name, tt.wantName)
			}
			if !slices.Equal(req.Extras, tt.wantExtras) {
				t.Errorf("Parse(%q).Extras = %v, want %v", tt.input, req.Extras, tt.wantExtras)
			}
			if (req.Marker != nil) != tt.wantMarker {
				t.Errorf("Parse(%q).Marker present = %v, want %v", tt.input, req.Marker != nil, tt.wantMarker)
			}
		})
	}
}

func TestRequirementMatches(t *testing.T) {
	req := MustParse("libA>=1.2,<2.0")

	tests := []struct {
		version string
		want    bool
	}{
		{"1.2", true},
		{"1.9.9", true},
		{"1.1", false},
		{"2.0", false},
	}

	for _, tt := range tests {
		if got := req.Matches(pyver.MustParse(tt.version)); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}

	// An unconstrained requirement matches any version.
	if !MustParse("libA").Matches(pyver.MustParse("0.0.1")) {
		t.Error("unconstrained requirement rejected a version")
	}
}

func TestRequirementString(t *testing.T) {
	raw := `libA[tls,cli]>=1.2; python_version >= "3.8"`
	req := MustParse(raw)
	if req.String() != raw {
		t.Errorf("String() = %q, want %q", req.String(), raw)
	}
}

func TestWithoutMarker(t *testing.T) {
	req := MustParse(`libA>=1.2; python_version >= "3.8"`)
	stripped := req.WithoutMarker()
	if stripped.Marker != nil {
		t.Error("WithoutMarker() kept the marker")
	}
	if req.Marker == nil {
		t.Error("WithoutMarker() mutated the original")
	}
	if stripped.Name != req.Name {
		t.Errorf("WithoutMarker() changed the name: %q", stripped.Name)
	}
}

func TestParseAll(t *testing.T) {
	reqs, err := ParseAll([]string{"libA>=1.0", "libB"})
	if err != nil {
		t.Fatalf("ParseAll() unexpected error: %v", err)
	}
	if len(reqs) != 2 || reqs[0].Name != "liba" || reqs[1].Name != "libb" {
		t.Errorf("ParseAll() = %v", reqs)
	}

	if _, err := ParseAll([]string{"libA", ""}); err == nil {
		t.Error("ParseAll() expected error for empty requirement")
	}
}
