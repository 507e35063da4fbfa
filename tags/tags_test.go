package tags

import (
	"testing"
)

func TestTagString(t *testing.T) {
	tag := Tag{Interpreter: "cp311", ABI: "cp311", Platform: "manylinux_2_17_x86_64"}
	if got := tag.String(); got != "cp311-cp311-manylinux_2_17_x86_64" {
		t.Errorf("String() = %q", got)
	}
}

func TestDecompress(t *testing.T) {
	tests := []struct {
		tag  Tag
		want []Tag
	}{
		{
			Tag{"cp311", "cp311", "linux_x86_64"},
			[]Tag{{"cp311", "cp311", "linux_x86_64"}},
		},
		{
			Tag{"py2.py3", "none", "any"},
			[]Tag{{"py2", "none", "any"}, {"py3", "none", "any"}},
		},
		{
			Tag{"cp311", "abi3.cp311", "linux_x86_64.macosx_11_0_arm64"},
			[]Tag{
				{"cp311", "abi3", "linux_x86_64"},
				{"cp311", "abi3", "macosx_11_0_arm64"},
				{"cp311", "cp311", "linux_x86_64"},
				{"cp311", "cp311", "macosx_11_0_arm64"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.tag.String(), func(t *testing.T) {
			got := tt.tag.Decompress()
			if len(got) != len(tt.want) {
				t.Fatalf("Decompress() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Decompress()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b []Tag
		want bool
	}{
		{
			"exact match",
			[]Tag{{"cp311", "cp311", "linux_x86_64"}},
			[]Tag{{"cp311", "cp311", "linux_x86_64"}},
			true,
		},
		{
			"no overlap",
			[]Tag{{"cp311", "cp311", "linux_x86_64"}},
			[]Tag{{"cp310", "cp310", "linux_x86_64"}},
			false,
		},
		{
			"compressed set overlap",
			[]Tag{{"py2.py3", "none", "any"}},
			[]Tag{{"py3", "none", "any"}},
			true,
		},
		{
			"compressed on both sides",
			[]Tag{{"cp311", "abi3", "manylinux_2_17_x86_64.musllinux_1_1_x86_64"}},
			[]Tag{{"cp311", "abi3.none", "musllinux_1_1_x86_64"}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intersects(tt.a, tt.b); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBestRank(t *testing.T) {
	supported := Supported{
		{"cp311", "cp311", "manylinux_2_17_x86_64"},
		{"cp311", "abi3", "manylinux_2_17_x86_64"},
		{"cp311", "none", "any"},
		{"py3", "none", "any"},
	}

	tests := []struct {
		name     string
		ts       []Tag
		wantRank int
		wantOK   bool
	}{
		{"most specific", []Tag{{"cp311", "cp311", "manylinux_2_17_x86_64"}}, 0, true},
		{"abi3 fallback", []Tag{{"cp311", "abi3", "manylinux_2_17_x86_64"}}, 1, true},
		{"pure python", []Tag{{"py3", "none", "any"}}, 3, true},
		{"multiple tags take the best", []Tag{{"py3", "none", "any"}, {"cp311", "abi3", "manylinux_2_17_x86_64"}}, 1, true},
		{"no match", []Tag{{"cp310", "cp310", "linux_x86_64"}}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank, ok := supported.BestRank(tt.ts)
			if ok != tt.wantOK {
				t.Fatalf("BestRank() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && rank != tt.wantRank {
				t.Errorf("BestRank() = %d, want %d", rank, tt.wantRank)
			}
			if supported.Contains(tt.ts) != tt.wantOK {
				t.Errorf("Contains() = %v, want %v", !tt.wantOK, tt.wantOK)
			}
		})
	}
}

func TestParseWheelFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantErr     bool
		wantName    string
		wantVersion string
		wantTag     Tag
	}{
		{
			"libA-1.0-py3-none-any.whl",
			false, "libA", "1.0", Tag{"py3", "none", "any"},
		},
		{
			"numpy-1.26.4-cp311-cp311-manylinux_2_17_x86_64.whl",
			false, "numpy", "1.26.4", Tag{"cp311", "cp311", "manylinux_2_17_x86_64"},
		},
		// Optional build tag field.
		{
			"libB-2.0-1-py3-none-any.whl",
			false, "libB", "2.0", Tag{"py3", "none", "any"},
		},
		// Compressed tag sets stay joined in the parsed tag.
		{
			"six-1.16.0-py2.py3-none-any.whl",
			false, "six", "1.16.0", Tag{"py2.py3", "none", "any"},
		},
		{"libA-1.0-py3-none-any.tar.gz", true, "", "", Tag{}},
		{"libA-1.0-py3-none.whl", true, "", "", Tag{}},
		{"libA-1.0-2-3-py3-none-any.whl", true, "", "", Tag{}},
		{"libA--py3-none-any.whl", true, "", "", Tag{}},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			name, version, ts, err := ParseWheelFilename(tt.filename)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseWheelFilename(%q) expected error", tt.filename)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWheelFilename(%q) unexpected error: %v", tt.filename, err)
			}
			if name != tt.wantName || version != tt.wantVersion {
				t.Errorf("ParseWheelFilename(%q) = %q, %q", tt.filename, name, version)
			}
			if len(ts) != 1 || ts[0] != tt.wantTag {
				t.Errorf("ParseWheelFilename(%q) tags = %v, want %v", tt.filename, ts, tt.wantTag)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	tag, err := ParseTag("cp311-cp311-manylinux_2_17_x86_64")
	if err != nil {
		t.Fatalf("ParseTag() unexpected error: %v", err)
	}
	want := Tag{"cp311", "cp311", "manylinux_2_17_x86_64"}
	if tag != want {
		t.Errorf("ParseTag() = %v, want %v", tag, want)
	}

	if _, err := ParseTag("cp311-cp311"); err == nil {
		t.Error("ParseTag() expected error for two fields")
	}
}

func TestFormatTags(t *testing.T) {
	ts := []Tag{{"cp311", "cp311", "linux_x86_64"}, {"py3", "none", "any"}}
	want := "cp311-cp311-linux_x86_64, py3-none-any"
	if got := FormatTags(ts); got != want {
		t.Errorf("FormatTags() = %q, want %q", got, want)
	}
}
