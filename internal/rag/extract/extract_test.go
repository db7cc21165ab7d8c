package extract

import (
	"testing"

	"docqa/internal/rag/errs"
)

func TestTextPlainFormats(t *testing.T) {
	for _, name := range []string{"notes.txt", "readme.md"} {
		text, err := Text(name, []byte("hello\nworld"))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if text != "hello\nworld" {
			t.Fatalf("%s: text = %q", name, text)
		}
	}
}

func TestTextEmptyFile(t *testing.T) {
	_, err := Text("notes.txt", nil)
	if !errs.IsValidation(err) {
		t.Fatalf("empty file: got %v, want validation error", err)
	}
}

func TestTextUnsupportedType(t *testing.T) {
	_, err := Text("archive.zip", []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0x00})
	if !errs.IsPermanent(err) {
		t.Fatalf("unsupported type: got %v, want permanent error", err)
	}
}

func TestTextBlankContent(t *testing.T) {
	_, err := Text("blank.txt", []byte("   \n\n\t  "))
	if !errs.IsPermanent(err) {
		t.Fatalf("blank content: got %v, want permanent error", err)
	}
}

func TestTextSniffsMissingExtension(t *testing.T) {
	text, err := Text("upload", []byte("plain text without a file extension"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "plain text without a file extension" {
		t.Fatalf("text = %q", text)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "first line  \n\n\n\nsecond line\t\n"
	want := "first line\n\nsecond line"
	if got := normalizeWhitespace(in); got != want {
		t.Fatalf("normalizeWhitespace = %q, want %q", got, want)
	}
}
