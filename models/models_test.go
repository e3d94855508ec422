package models

import "testing"

func TestShortcutNormalizedID(t *testing.T) {
	s := Shortcut{ID: "  Java-Install "}
	if got := s.NormalizedID(); got != "java-install" {
		t.Fatalf("expected java-install, got %q", got)
	}
}

func TestShortcutRenderedDescription(t *testing.T) {
	s := Shortcut{MessageDescription: `line one\nline two\n\nend`}
	want := "line one\nline two\n\nend"
	if got := s.RenderedDescription(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	if got := (Shortcut{}).RenderedDescription(); got != "" {
		t.Fatalf("expected empty description, got %q", got)
	}
}

func TestShortcutComplete(t *testing.T) {
	full := Shortcut{ID: "a", Description: "b", MessageTitle: "c", MessageDescription: "d"}
	if !full.Complete() {
		t.Fatal("expected complete shortcut")
	}

	missing := full
	missing.MessageTitle = "   "
	if missing.Complete() {
		t.Fatal("expected blank title to be incomplete")
	}
}
