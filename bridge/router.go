package bridge

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// CommandKind identifies what an inbound text asks the bridge to do.
type CommandKind int

const (
	// CmdNone means no bridge action matched; the text goes to the
	// conversational responder.
	CmdNone CommandKind = iota
	CmdStart
	CmdHelp
	CmdBrowse
	CmdScreenshot
	CmdVoiceReply
	CmdSendFile
	CmdSendFolder
	CmdSendQuery
	CmdSendLocation
	CmdSendContact
	CmdSendPoll
	CmdSendAlbum
)

// Command is a routed inbound request.
type Command struct {
	Kind CommandKind
	// Arg carries the path, search term, filter value or prompt text,
	// depending on Kind.
	Arg string
}

var (
	sendFileRe     = regexp.MustCompile(`(?i)\bsend\s+(?:me\s+)?(?:the\s+)?file\s+(.+)`)
	sendFolderRe   = regexp.MustCompile(`(?i)\bsend\s+(?:me\s+)?(?:the\s+)?(?:folder|directory|dir)\s+(.+)`)
	sendLocationRe = regexp.MustCompile(`(?i)\bsend\s+(?:me\s+)?location\s+(.+)`)
	sendContactRe  = regexp.MustCompile(`(?i)\bsend\s+(?:me\s+)?contact\s+(.+)`)
	sendPollRe     = regexp.MustCompile(`(?i)\bsend\s+(?:me\s+)?poll\s+(.+)`)
	sendAlbumRe    = regexp.MustCompile(`(?i)\bsend\s+(?:me\s+)?album\s+(.+)`)
	sendBareRe     = regexp.MustCompile(`(?i)\bsend\s+(?:me\s+)?(.+)`)
)

// ParseCommand classifies text. Slash commands win, then natural-language
// patterns; anything else is CmdNone and flows to the responder.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return Command{Kind: CmdNone}
	}

	if strings.HasPrefix(text, "/") {
		cmd, arg := splitSlash(text)
		switch cmd {
		case "/start":
			return Command{Kind: CmdStart}
		case "/help":
			return Command{Kind: CmdHelp}
		case "/browse", "/files":
			return Command{Kind: CmdBrowse, Arg: ParseFilter(arg)}
		case "/screenshot":
			return Command{Kind: CmdScreenshot}
		case "/voice":
			return Command{Kind: CmdVoiceReply, Arg: arg}
		case "/sendfile":
			if arg == "" {
				return Command{Kind: CmdHelp}
			}
			return Command{Kind: CmdSendFile, Arg: arg}
		case "/sendfolder":
			if arg == "" {
				return Command{Kind: CmdHelp}
			}
			return Command{Kind: CmdSendFolder, Arg: arg}
		default:
			return Command{Kind: CmdHelp}
		}
	}

	lower := strings.ToLower(text)

	if browseExact[lower] {
		return Command{Kind: CmdBrowse, Arg: ParseFilter(text)}
	}
	// Browse phrasing plus a category mention ("browse my videos").
	if containsAny(lower, "browse", "list files", "show files", "file browser") &&
		ParseFilter(lower) != FilterAll {
		return Command{Kind: CmdBrowse, Arg: ParseFilter(text)}
	}
	if screenshotExact[lower] ||
		strings.HasPrefix(lower, "send me screenshot") ||
		strings.HasPrefix(lower, "send screenshot of") {
		return Command{Kind: CmdScreenshot}
	}
	// "send voice <text>" and "reply in voice <text>" speak only the
	// payload; without one the text falls through to the later branches.
	for _, prefix := range []string{"send voice ", "reply in voice "} {
		if strings.HasPrefix(lower, prefix) {
			if payload := strings.TrimSpace(text[len(prefix):]); payload != "" {
				return Command{Kind: CmdVoiceReply, Arg: payload}
			}
		}
	}
	if m := sendLocationRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdSendLocation, Arg: strings.TrimSpace(m[1])}
	}
	if m := sendContactRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdSendContact, Arg: strings.TrimSpace(m[1])}
	}
	if m := sendPollRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdSendPoll, Arg: strings.TrimSpace(m[1])}
	}
	if m := sendAlbumRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdSendAlbum, Arg: strings.TrimSpace(m[1])}
	}
	if m := sendFolderRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdSendFolder, Arg: strings.TrimSpace(m[1])}
	}
	if m := sendFileRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdSendFile, Arg: strings.TrimSpace(m[1])}
	}
	if m := sendBareRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: CmdSendQuery, Arg: strings.TrimSpace(m[1])}
	}
	return Command{Kind: CmdNone, Arg: text}
}

var browseExact = map[string]bool{
	"browse":       true,
	"browse files": true,
	"file browser": true,
	"list files":   true,
	"list folders": true,
	"show files":   true,
}

var screenshotExact = map[string]bool{
	"send screenshot":      true,
	"send me a screenshot": true,
	"take screenshot":      true,
	"take a screenshot":    true,
	"send screen":          true,
	"send current screen":  true,
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func splitSlash(text string) (cmd, arg string) {
	fields := strings.SplitN(text, " ", 2)
	cmd = strings.ToLower(fields[0])
	// Strip the @botname suffix used in group chats.
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	if len(fields) == 2 {
		arg = strings.TrimSpace(fields[1])
	}
	return cmd, arg
}

// Filename search stops after this many directory entries so a "send me
// report.pdf" against a huge tree stays bounded.
const maxSearchEntries = 12000

var searchSkipDirNames = map[string]bool{".idea": true, ".vscode": true}

// ResolveSendTarget turns the argument of a bare send request into a local
// path: an existing absolute or home-relative path wins, otherwise the
// quick roots are searched for a matching filename. An exact basename
// match wins over the first substring match.
func ResolveSendTarget(arg string, roots []Root) (string, bool) {
	arg = strings.Trim(arg, `"'`)
	if arg == "" {
		return "", false
	}

	if strings.HasPrefix(arg, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			arg = filepath.Join(home, strings.TrimPrefix(arg, "~"))
		}
	}
	if filepath.IsAbs(arg) || strings.ContainsRune(arg, os.PathSeparator) {
		if _, err := os.Stat(arg); err == nil {
			return filepath.Clean(arg), true
		}
		return "", false
	}

	want := strings.ToLower(arg)
	budget := maxSearchEntries
	substringHit := ""
	for _, root := range roots {
		if root.Path == string(os.PathSeparator) {
			continue
		}
		exact := ""
		_ = filepath.WalkDir(root.Path, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if budget--; budget <= 0 {
				return fs.SkipAll
			}
			if d.IsDir() {
				if path != root.Path && (skipDirNames[d.Name()] || searchSkipDirNames[d.Name()]) {
					return fs.SkipDir
				}
				return nil
			}
			name := strings.ToLower(d.Name())
			if name == want {
				exact = path
				return fs.SkipAll
			}
			if substringHit == "" && strings.Contains(name, want) {
				substringHit = path
			}
			return nil
		})
		if exact != "" {
			return exact, true
		}
		if budget <= 0 {
			break
		}
	}
	if substringHit != "" {
		return substringHit, true
	}
	return "", false
}
