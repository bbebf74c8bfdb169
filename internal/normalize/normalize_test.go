package normalize

import "testing"

func TestBody(t *testing.T) {
	in := "  Is this still available?\n"
	want := "Is this still available?"
	if got := Body(in); got != want {
		t.Fatalf("Body(%q) = %q, want %q", in, got, want)
	}
	if got := Body(" \t\n"); got != "" {
		t.Fatalf("Body of whitespace = %q, want empty", got)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Fatalf("Preview kept = %q", got)
	}
	if got := Preview("a  b\nc", 10); got != "a b c" {
		t.Fatalf("Preview collapsed = %q", got)
	}
	if got := Preview("héllo world", 5); got != "héll…" {
		t.Fatalf("Preview cut = %q", got)
	}
}
