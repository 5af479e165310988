package bridge

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text     string
		wantKind CommandKind
		wantArg  string
	}{
		{"/start", CmdStart, ""},
		{"/help", CmdHelp, ""},
		{"/browse", CmdBrowse, FilterAll},
		{"/browse photos", CmdBrowse, "photo"},
		{"/files", CmdBrowse, FilterAll},
		{"/screenshot", CmdScreenshot, ""},
		{"/voice hello there", CmdVoiceReply, "hello there"},
		{"/sendfile /tmp/a.txt", CmdSendFile, "/tmp/a.txt"},
		{"/sendfolder ~/docs", CmdSendFolder, "~/docs"},
		{"/sendfile", CmdHelp, ""},
		{"/unknowncmd", CmdHelp, ""},
		{"/start@pixie_bot", CmdStart, ""},

		{"browse my videos", CmdBrowse, "video"},
		{"show files", CmdBrowse, FilterAll},
		{"list folders", CmdBrowse, FilterAll},
		{"send me a screenshot", CmdScreenshot, ""},
		{"take a screenshot", CmdScreenshot, ""},
		{"send screenshot of the desktop", CmdScreenshot, ""},
		{"reply in voice please", CmdVoiceReply, "please"},
		{"send voice hello world", CmdVoiceReply, "hello world"},
		{"send me the file report.pdf", CmdSendFile, "report.pdf"},
		{"send folder ~/Documents", CmdSendFolder, "~/Documents"},
		{"send me location 52.1,4.3", CmdSendLocation, "52.1,4.3"},
		{"send contact +3161234|Ada", CmdSendContact, "+3161234|Ada"},
		{"send poll lunch?|pizza|sushi", CmdSendPoll, "lunch?|pizza|sushi"},
		{"send album a.jpg|b.jpg", CmdSendAlbum, "a.jpg|b.jpg"},
		{"send me report.pdf", CmdSendQuery, "report.pdf"},

		{"how are you today?", CmdNone, "how are you today?"},
		{"how do i take a screenshot on a mac?", CmdNone, "how do i take a screenshot on a mac?"},
		{"which browser do you like?", CmdNone, "which browser do you like?"},
		{"", CmdNone, ""},
	}
	for _, tt := range tests {
		got := ParseCommand(tt.text)
		if got.Kind != tt.wantKind || got.Arg != tt.wantArg {
			t.Errorf("ParseCommand(%q) = {%v %q}, want {%v %q}",
				tt.text, got.Kind, got.Arg, tt.wantKind, tt.wantArg)
		}
	}
}

func TestResolveSendTargetDirectPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	writeFile(t, file)

	got, ok := ResolveSendTarget(file, nil)
	if !ok || got != file {
		t.Fatalf("ResolveSendTarget(%q) = (%q, %v)", file, got, ok)
	}
	if _, ok := ResolveSendTarget(filepath.Join(dir, "missing.txt"), nil); ok {
		t.Fatalf("resolved a path that does not exist")
	}
}

func TestResolveSendTargetFilenameSearch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub", ".git"), 0o700); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, "sub", "report.pdf"))
	writeFile(t, filepath.Join(root, "sub", ".git", "report.pdf"))
	writeFile(t, filepath.Join(root, "annual_report_2025.pdf"))

	roots := []Root{{Label: "Home", Path: root}}

	// Exact basename match wins over the substring hit.
	got, ok := ResolveSendTarget("report.pdf", roots)
	if !ok {
		t.Fatal("exact search found nothing")
	}
	if filepath.Base(got) != "report.pdf" {
		t.Fatalf("exact search = %q", got)
	}
	if filepath.Base(filepath.Dir(got)) == ".git" {
		t.Fatalf("search descended into a skip dir: %q", got)
	}

	// No exact match falls back to the first substring hit.
	got, ok = ResolveSendTarget("annual", roots)
	if !ok || filepath.Base(got) != "annual_report_2025.pdf" {
		t.Fatalf("substring search = (%q, %v)", got, ok)
	}

	if _, ok = ResolveSendTarget("nothere.bin", roots); ok {
		t.Fatalf("search invented a match")
	}
}
