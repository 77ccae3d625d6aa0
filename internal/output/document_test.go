package output

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/zprp/ffscan/internal/batch"
	"github.com/zprp/ffscan/internal/extract"
)

func sampleDocument() *Document {
	return NewDocument("/src/ffmpeg", &batch.Result{
		Filters: []extract.Filter{{
			Name:        "flip",
			Description: "flips frame",
			Options: []extract.FilterOption{
				{Name: "mode", Type: "AV_OPT_TYPE_INT", Description: "set flip mode", Offset: "mode", Default: "0"},
			},
			Ident: "ff_vf_flip",
			File:  "libavfilter/vf_flip.c",
		}},
		Failures: []extract.ParseFailure{
			{File: "libavfilter/vf_broken.c", Kind: extract.FailureToolchain, Message: "nothere.h: No such file"},
		},
		Registered: []string{"ff_vf_flip", "ff_vf_scale"},
		Coverage:   batch.Coverage{Registered: 2, Extracted: 1, Missing: []string{"ff_vf_scale"}},
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"yaml", FormatYAML, false},
		{" JSON ", FormatJSON, false},
		{"msgpack", FormatMsgpack, false},
		{"pickle", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}

	if FormatForPath("out/filters.msgpack", FormatYAML) != FormatMsgpack {
		t.Error("expected msgpack for .msgpack extension")
	}
	if FormatForPath("filters.dat", FormatJSON) != FormatJSON {
		t.Error("expected fallback for unknown extension")
	}
}

func TestWriteRead(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON, FormatMsgpack} {
		t.Run(format.String(), func(t *testing.T) {
			doc := sampleDocument()
			var buf bytes.Buffer
			if err := Write(&buf, doc, format); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Read(&buf, format)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !reflect.DeepEqual(got, doc) {
				t.Errorf("decoded document differs\n got: %+v\nwant: %+v", got, doc)
			}
		})
	}
}

func TestWrite_YAMLLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDocument(), FormatYAML); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"version: 1", "- name: flip", "type: AV_OPT_TYPE_INT", "kind: toolchain"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestRead_RejectsNewerVersion(t *testing.T) {
	_, err := Read(strings.NewReader(`{"version": 99}`), FormatJSON)
	if err == nil {
		t.Error("expected error for a newer document version")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "filters.msgpack")
	doc := sampleDocument()
	if err := WriteFile(path, doc, FormatMsgpack); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path, FormatMsgpack)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got.Filters) != 1 || got.Filters[0].Name != "flip" {
		t.Errorf("unexpected filters: %+v", got.Filters)
	}
}
