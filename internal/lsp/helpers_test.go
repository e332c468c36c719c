package lsp

import (
	"testing"

	"go.lsp.dev/protocol"
)

func TestURIToPathStripsFileScheme(t *testing.T) {
	if got := uriToPath("file:///home/user/Cargo.toml"); got != "/home/user/Cargo.toml" {
		t.Errorf("uriToPath = %q", got)
	}
}

func TestURIToPathStripsWindowsDriveLeadingSlash(t *testing.T) {
	if got := uriToPath("file:///C:/Users/dev/Cargo.toml"); got != "C:/Users/dev/Cargo.toml" {
		t.Errorf("uriToPath = %q", got)
	}
}

func TestURIToPathLeavesNonFileURIUnchanged(t *testing.T) {
	if got := uriToPath("untitled:Untitled-1"); got != "untitled:Untitled-1" {
		t.Errorf("uriToPath = %q", got)
	}
}

func TestPositionToOffsetASCII(t *testing.T) {
	text := "line one\nline two\nline three"
	off := positionToOffset(text, protocol.Position{Line: 1, Character: 5})
	if text[off:off+3] != "two" {
		t.Errorf("positionToOffset landed at %q, want \"two\"", text[off:])
	}
}

func TestPositionToOffsetClampsAtLineEnd(t *testing.T) {
	text := "short\nlines"
	off := positionToOffset(text, protocol.Position{Line: 0, Character: 100})
	if off != len("short") {
		t.Errorf("positionToOffset = %d, want %d (clamped to end of line)", off, len("short"))
	}
}

func TestPositionToOffsetHandlesSurrogatePairRunes(t *testing.T) {
	text := "a\U0001F600b"
	off := positionToOffset(text, protocol.Position{Line: 0, Character: 3})
	if text[off:] != "b" {
		t.Errorf("positionToOffset landed before %q, want \"b\"", text[off:])
	}
}

func TestBuildTriggerCharactersIncludesPunctuationAndAlphanumerics(t *testing.T) {
	chars := buildTriggerCharacters()
	want := map[string]bool{`"`: false, "'": false, "=": false, ".": false, ",": false, " ": false, "a": false, "Z": false, "5": false}
	for _, c := range chars {
		if _, ok := want[c]; ok {
			want[c] = true
		}
	}
	for c, seen := range want {
		if !seen {
			t.Errorf("buildTriggerCharacters() missing %q", c)
		}
	}
	if len(chars) != 6+10+26+26 {
		t.Errorf("len(buildTriggerCharacters()) = %d, want %d", len(chars), 6+10+26+26)
	}
}

func TestMaxInt(t *testing.T) {
	if maxInt(3, 5) != 5 {
		t.Error("maxInt(3, 5) != 5")
	}
	if maxInt(5, 3) != 5 {
		t.Error("maxInt(5, 3) != 5")
	}
}
