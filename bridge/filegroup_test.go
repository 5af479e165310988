package bridge

import "testing"

func TestGroupForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Group
	}{
		{"/home/u/pic.jpg", GroupPhoto},
		{"/home/u/pic.JPEG", GroupPhoto},
		{"shot.png", GroupPhoto},
		{"anim.gif", GroupPhoto},
		{"art.webp", GroupPhoto},
		{"scan.tiff", GroupPhoto},
		{"img.bmp", GroupPhoto},
		{"clip.mp4", GroupVideo},
		{"clip.mov", GroupVideo},
		{"clip.mkv", GroupVideo},
		{"clip.webm", GroupVideo},
		{"clip.avi", GroupVideo},
		{"song.mp3", GroupAudio},
		{"take.wav", GroupAudio},
		{"take.m4a", GroupAudio},
		{"take.aac", GroupAudio},
		{"take.flac", GroupAudio},
		{"note.ogg", GroupAudio},
		{"note.opus", GroupAudio},
		{"paper.pdf", GroupPDF},
		{"main.go", GroupCode},
		{"script.py", GroupCode},
		{"app.tsx", GroupCode},
		{"conf.yaml", GroupCode},
		{"data.json", GroupCode},
		{"query.sql", GroupCode},
		{"notes.txt", GroupText},
		{"README.md", GroupText},
		{"app.log", GroupText},
		{"settings.ini", GroupText},
		{"report.docx", GroupDoc},
		{"deck.pptx", GroupDoc},
		{"sheet.xlsx", GroupDoc},
		{"export.csv", GroupDoc},
		{"blob.bin", GroupOther},
		{"noext", GroupOther},
		{"archive.zip", GroupOther},
	}
	for _, tt := range tests {
		if got := GroupForPath(tt.path); got != tt.want {
			t.Errorf("GroupForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestKindForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Kind
	}{
		{"a.jpg", KindImage},
		{"a.PNG", KindImage},
		{"a.webp", KindImage},
		{"a.mp4", KindVideo},
		{"a.mkv", KindVideo},
		{"a.mp3", KindAudio},
		{"a.flac", KindAudio},
		{"a.ogg", KindVoice},
		{"a.opus", KindVoice},
		{"a.oga", KindVoice},
		{"a.pdf", KindDocument},
		{"a.zip", KindDocument},
		{"a", KindDocument},
	}
	for _, tt := range tests {
		if got := KindForPath(tt.path); got != tt.want {
			t.Errorf("KindForPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"browse photos", string(GroupPhoto)},
		{"show me images", string(GroupPhoto)},
		{"browse videos", string(GroupVideo)},
		{"any songs?", string(GroupAudio)},
		{"browse pdf", string(GroupPDF)},
		{"python code please", string(GroupCode)},
		{"the readme", string(GroupText)},
		{"office documents", string(GroupDoc)},
		{"browse", FilterAll},
		{"", FilterAll},
	}
	for _, tt := range tests {
		if got := ParseFilter(tt.text); got != tt.want {
			t.Errorf("ParseFilter(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestValidFilter(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"all", "photo", "video", "audio", "pdf", "code", "text", "doc", "other"} {
		if !ValidFilter(ok) {
			t.Errorf("ValidFilter(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "photos", "ALL", "zip"} {
		if ValidFilter(bad) {
			t.Errorf("ValidFilter(%q) = true", bad)
		}
	}
}
