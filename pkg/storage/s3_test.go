package storage

import "testing"

func TestValidateClipFileType(t *testing.T) {
	cases := []struct {
		contentType string
		filename    string
		want        bool
	}{
		{"audio/mpeg", "airhorn.mp3", true},
		{"audio/ogg", "clip.ogg", true},
		{"", "drum.wav", true},
		{"application/octet-stream", "clip.webm", true},
		{"video/mp4", "movie.mp4", false},
		{"", "notes.txt", false},
		{"text/html", "page", false},
	}
	for _, tc := range cases {
		if got := ValidateClipFileType(tc.contentType, tc.filename); got != tc.want {
			t.Errorf("ValidateClipFileType(%q, %q) = %v, want %v", tc.contentType, tc.filename, got, tc.want)
		}
	}
}

func TestContentTypeForFilename(t *testing.T) {
	if got := ContentTypeForFilename("airhorn.MP3"); got != "audio/mpeg" {
		t.Fatalf("ContentTypeForFilename = %q, want audio/mpeg", got)
	}
	if got := ContentTypeForFilename("mystery.bin"); got != "application/octet-stream" {
		t.Fatalf("ContentTypeForFilename fallback = %q", got)
	}
}

func TestClipKey(t *testing.T) {
	got := ClipKey("9b8a7c6d-0000-0000-0000-000000000000", "airhorn.mp3")
	want := "clips/9b8a7c6d-0000-0000-0000-000000000000/airhorn.mp3"
	if got != want {
		t.Fatalf("ClipKey = %q, want %q", got, want)
	}

	// Path components in the filename must not escape the party prefix.
	got = ClipKey("party", "../../etc/passwd")
	if got != "clips/party/passwd" {
		t.Fatalf("ClipKey traversal = %q", got)
	}
}
