package analyze

import (
	"errors"
	"testing"
)

func TestParseMetadataResponsePlainJSON(t *testing.T) {
	meta, err := ParseMetadataResponse(`{"title":"唐揚げ弁当","description":"二段重ねの唐揚げ弁当","tags":["唐揚げ","和食"]}`)
	if err != nil {
		t.Fatalf("ParseMetadataResponse() error = %v", err)
	}
	if meta.Title != "唐揚げ弁当" {
		t.Errorf("Title = %q", meta.Title)
	}
	if len(meta.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 entries", meta.Tags)
	}
}

func TestParseMetadataResponseStripsCodeFence(t *testing.T) {
	cases := map[string]string{
		"with language tag": "```json\n{\"title\":\"鮭弁当\",\"description\":\"焼き鮭\",\"tags\":[]}\n```",
		"without tag":       "```\n{\"title\":\"鮭弁当\",\"description\":\"焼き鮭\",\"tags\":[]}\n```",
		"surrounding space": "  \n```json\n{\"title\":\"鮭弁当\",\"description\":\"焼き鮭\",\"tags\":[]}\n```\n  ",
		"single line":       "```json{\"title\":\"鮭弁当\",\"description\":\"焼き鮭\",\"tags\":[]}```",
	}

	for name, input := range cases {
		meta, err := ParseMetadataResponse(input)
		if err != nil {
			t.Errorf("%s: error = %v", name, err)
			continue
		}
		if meta.Title != "鮭弁当" {
			t.Errorf("%s: Title = %q", name, meta.Title)
		}
	}
}

func TestParseMetadataResponseNormalizesNilTags(t *testing.T) {
	meta, err := ParseMetadataResponse(`{"title":"弁当","description":"","tags":null}`)
	if err != nil {
		t.Fatalf("ParseMetadataResponse() error = %v", err)
	}
	if meta.Tags == nil {
		t.Fatal("Tags is nil, want empty slice")
	}
}

func TestParseMetadataResponseRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not json":          "the bento contains rice and fish",
		"missing title":     `{"description":"x","tags":[]}`,
		"missing tags":      `{"title":"弁当","description":"x"}`,
		"empty title":       `{"title":"  ","description":"x","tags":[]}`,
		"empty string":      "",
		"array instead":     `["弁当"]`,
	}

	for name, input := range cases {
		if _, err := ParseMetadataResponse(input); !errors.Is(err, ErrMetadataParse) {
			t.Errorf("%s: error = %v, want ErrMetadataParse", name, err)
		}
	}
}

func TestDefaultMetadata(t *testing.T) {
	meta := DefaultMetadata()
	if meta.Title != "弁当" {
		t.Errorf("Title = %q, want 弁当", meta.Title)
	}
	if meta.Tags == nil {
		t.Error("Tags is nil, want empty slice")
	}
}
