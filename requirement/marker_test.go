package requirement

import (
	"strings"
	"testing"
)

func linuxEnv(extras ...string) Environment {
	return Environment{
		Values: map[string]string{
			"python_version":      "3.11",
			"python_full_version": "3.11.9",
			"sys_platform":        "linux",
			"os_name":             "posix",
			"platform_machine":    "x86_64",
			"implementation_name": "cpython",
		},
		Extras: extras,
	}
}

func TestMarkerEval(t *testing.T) {
	tests := []struct {
		marker  string
		env     Environment
		want    bool
		wantErr string
	}{
		// String comparisons.
		{`sys_platform == "linux"`, linuxEnv(), true, ""},
		{`sys_platform == "win32"`, linuxEnv(), false, ""},
		{`sys_platform != "win32"`, linuxEnv(), true, ""},
		{`'linux' == sys_platform`, linuxEnv(), true, ""},

		// Version-aware comparisons: 3.11 is not less than 3.8
		// lexicographically smaller-looking strings notwithstanding.
		{`python_version >= "3.8"`, linuxEnv(), true, ""},
		{`python_version < "3.8"`, linuxEnv(), false, ""},
		{`python_version == "3.11"`, linuxEnv(), true, ""},
		{`python_full_version >= "3.11.2"`, linuxEnv(), true, ""},
		{`python_version ~= "3.8"`, linuxEnv(), true, ""},

		// Substring operators.
		{`"linu" in sys_platform`, linuxEnv(), true, ""},
		{`"win" not in sys_platform`, linuxEnv(), true, ""},

		// Boolean structure and grouping.
		{`python_version >= "3.8" and sys_platform == "linux"`, linuxEnv(), true, ""},
		{`python_version >= "3.8" and sys_platform == "win32"`, linuxEnv(), false, ""},
		{`sys_platform == "win32" or sys_platform == "linux"`, linuxEnv(), true, ""},
		{`sys_platform == "win32" or (os_name == "posix" and python_version >= "3.8")`, linuxEnv(), true, ""},

		// The extra variable compares against the active extras set.
		{`extra == "tls"`, linuxEnv("tls"), true, ""},
		{`extra == "tls"`, linuxEnv(), false, ""},
		{`extra == "tls"`, linuxEnv("cli", "tls"), true, ""},
		{`extra == "TLS"`, linuxEnv("tls"), true, ""},
		{`extra != "tls"`, linuxEnv("cli"), true, ""},
		{`"tls" == extra`, linuxEnv("tls"), true, ""},
		{`extra == "tls" or extra == "cli"`, linuxEnv("cli"), true, ""},

		// Undefined variables fail evaluation rather than defaulting.
		{`platform_release >= "5.0"`, linuxEnv(), false, "undefined environment marker variable"},
		{`extra >= "tls"`, linuxEnv("tls"), false, "unsupported operator"},
	}

	for _, tt := range tests {
		t.Run(tt.marker, func(t *testing.T) {
			m := MustParseMarker(tt.marker)
			got, err := m.Eval(tt.env)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Eval() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Eval() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.marker, got, tt.want)
			}
		})
	}
}

func TestMarkerShortCircuit(t *testing.T) {
	// A false left side of "and" suppresses evaluation of an undefined
	// variable on the right; a true left side of "or" does the same.
	env := linuxEnv()

	m := MustParseMarker(`sys_platform == "win32" and platform_release >= "5.0"`)
	got, err := m.Eval(env)
	if err != nil || got {
		t.Errorf("and short-circuit: got %v, %v", got, err)
	}

	m = MustParseMarker(`sys_platform == "linux" or platform_release >= "5.0"`)
	got, err = m.Eval(env)
	if err != nil || !got {
		t.Errorf("or short-circuit: got %v, %v", got, err)
	}
}

func TestParseMarkerErrors(t *testing.T) {
	tests := []string{
		``,
		`python_version >=`,
		`python_version >= "3.8`,
		`(python_version >= "3.8"`,
		`python_version >= "3.8" and`,
		`python_version ? "3.8"`,
		`python_version not "3.8"`,
		`python_version >= "3.8" trailing`,
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseMarker(input); err == nil {
				t.Errorf("ParseMarker(%q) expected error", input)
			}
		})
	}
}

func TestHasExtra(t *testing.T) {
	env := Environment{Extras: []string{"tls", "cli"}}
	if !env.HasExtra("tls") || !env.HasExtra("TLS") || !env.HasExtra("Cli") {
		t.Error("HasExtra() missed a canonical match")
	}
	if env.HasExtra("gui") {
		t.Error("HasExtra() matched an absent extra")
	}
}
