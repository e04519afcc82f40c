package webmodule

import (
	"testing"
)

func TestKindForPath(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"app.js", KindJS},
		{"dist/APP.JS", KindJS},
		{"theme.css", KindCSS},
		{"icons.woff2", KindAncillary},
		{"bootstrap.js.map", KindAncillary},
		{"LICENSE", KindAncillary},
	}
	for _, tt := range tests {
		if got := KindForPath(tt.path); got != tt.want {
			t.Errorf("KindForPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestScriptType(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
		ok   bool
	}{
		{KindJS, "text/javascript", true},
		{KindModule, "module", true},
		{KindImportMap, "importmap", true},
		{KindCSS, "", false},
		{KindImported, "", false},
		{KindAncillary, "", false},
	}
	for _, tt := range tests {
		got, ok := tt.kind.ScriptType()
		if got != tt.want || ok != tt.ok {
			t.Errorf("%v.ScriptType() = %q, %v; want %q, %v", tt.kind, got, ok, tt.want, tt.ok)
		}
	}

	r, err := NewResource(ResourceSpec{Path: "theme.css"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ScriptType(); err == nil {
		t.Error("stylesheet ScriptType should fail")
	}
}

func TestDefaultPlacement(t *testing.T) {
	if got := DefaultPlacement(KindCSS); got != Head {
		t.Errorf("css placement = %v", got)
	}
	for _, k := range []Kind{KindJS, KindModule, KindImported, KindAncillary} {
		if got := DefaultPlacement(k); got != BodyTail {
			t.Errorf("%v placement = %v, want BodyTail", k, got)
		}
	}

	r, _ := NewResource(ResourceSpec{Path: "theme.css", Placement: BodyTail})
	if r.Placement() != BodyTail {
		t.Errorf("explicit placement lost: %v", r.Placement())
	}
}

func TestNewResourceValidation(t *testing.T) {
	content := "x"
	tests := []struct {
		name    string
		spec    ResourceSpec
		wantErr bool
	}{
		{"path only", ResourceSpec{Path: "a.js"}, false},
		{"inline with kind", ResourceSpec{Kind: KindCSS, Content: &content}, false},
		{"path with explicit kind", ResourceSpec{Path: "gen", Kind: KindJS}, false},

		{"nothing", ResourceSpec{}, true},
		{"inline without kind", ResourceSpec{Content: &content}, true},
		{"fs without path", ResourceSpec{FS: assets, Kind: KindJS, Content: &content}, true},
		{"absolute path", ResourceSpec{Path: "/etc/passwd"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResource(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewResource() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for k := range kindNames {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	for _, p := range Placements {
		got, err := ParsePlacement(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePlacement(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParseMount("socket"); err == nil {
		t.Error("ParseMount should reject unknown mounts")
	}
}
