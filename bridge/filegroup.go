package bridge

import (
	"mime"
	"path/filepath"
	"strings"
)

// Group is the browse-filter category of a file, derived purely from its
// extension.
type Group string

const (
	GroupPhoto Group = "photo"
	GroupVideo Group = "video"
	GroupAudio Group = "audio"
	GroupPDF   Group = "pdf"
	GroupCode  Group = "code"
	GroupText  Group = "text"
	GroupDoc   Group = "doc"
	GroupOther Group = "other"
)

// FilterAll accepts every group; the remaining filter values are the group
// names themselves.
const FilterAll = "all"

var photoExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".gif": true, ".bmp": true, ".tiff": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true,
	".flac": true, ".ogg": true, ".opus": true,
}

var codeExts = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".cs": true, ".cpp": true, ".c": true, ".h": true,
	".hpp": true, ".go": true, ".rs": true, ".php": true, ".rb": true,
	".swift": true, ".kt": true, ".kts": true, ".scala": true, ".sh": true,
	".ps1": true, ".html": true, ".css": true, ".scss": true, ".sql": true,
	".xml": true, ".yaml": true, ".yml": true, ".json": true, ".toml": true,
}

var textExts = map[string]bool{
	".txt": true, ".md": true, ".rst": true, ".log": true,
	".ini": true, ".cfg": true, ".env": true,
}

var docExts = map[string]bool{
	".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true, ".csv": true,
}

// GroupForPath classifies a path into exactly one group.
func GroupForPath(path string) Group {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case photoExts[ext]:
		return GroupPhoto
	case videoExts[ext]:
		return GroupVideo
	case audioExts[ext]:
		return GroupAudio
	case ext == ".pdf":
		return GroupPDF
	case codeExts[ext]:
		return GroupCode
	case textExts[ext]:
		return GroupText
	case docExts[ext]:
		return GroupDoc
	default:
		return GroupOther
	}
}

// ValidFilter reports whether s names a usable filter value.
func ValidFilter(s string) bool {
	switch s {
	case FilterAll, string(GroupPhoto), string(GroupVideo), string(GroupAudio),
		string(GroupPDF), string(GroupCode), string(GroupText), string(GroupDoc),
		string(GroupOther):
		return true
	}
	return false
}

func matchesFilter(path string, filter string) bool {
	if filter == FilterAll || filter == "" {
		return true
	}
	return string(GroupForPath(path)) == filter
}

// ParseFilter maps free-form request text to the filter it most plausibly
// asks for, defaulting to all.
func ParseFilter(text string) string {
	t := strings.ToLower(text)
	contains := func(keys ...string) bool {
		for _, k := range keys {
			if strings.Contains(t, k) {
				return true
			}
		}
		return false
	}
	switch {
	case contains("photo", "image", "pic", "png", "jpg", "jpeg", "webp", "gif"):
		return string(GroupPhoto)
	case contains("video", "mp4", "mov", "mkv", "webm"):
		return string(GroupVideo)
	case contains("audio", "voice", "song", "mp3", "wav", "flac", "ogg"):
		return string(GroupAudio)
	case contains("pdf"):
		return string(GroupPDF)
	case contains("code", "python", ".py", "js", "ts", "java", "cpp", "c#"):
		return string(GroupCode)
	case contains("text", "txt", "note", "readme", "log", "md"):
		return string(GroupText)
	case contains("doc", "document", "ppt", "xls", "csv", "office"):
		return string(GroupDoc)
	default:
		return FilterAll
	}
}

func groupIcon(g Group) string {
	switch g {
	case GroupPhoto:
		return "🖼️"
	case GroupVideo:
		return "🎬"
	case GroupAudio:
		return "🎵"
	case GroupPDF:
		return "📕"
	case GroupCode:
		return "🧩"
	case GroupText:
		return "📄"
	case GroupDoc:
		return "📑"
	default:
		return "📦"
	}
}

const folderIcon = "📁"

// Kind routes an outbound artifact to a transport method.
type Kind int

const (
	KindDocument Kind = iota
	KindImage
	KindVideo
	KindAudio
	KindVoice
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindVoice:
		return "voice"
	default:
		return "document"
	}
}

var sendImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
var sendVideoExts = map[string]bool{".mp4": true, ".mov": true, ".mkv": true, ".webm": true}
var sendAudioExts = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".flac": true}
var sendVoiceExts = map[string]bool{".ogg": true, ".oga": true, ".opus": true}

// KindForPath picks the send pathway: the extension table first, then the
// registered MIME type as a fallback for uncommon extensions.
func KindForPath(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case sendImageExts[ext]:
		return KindImage
	case sendVideoExts[ext]:
		return KindVideo
	case sendAudioExts[ext]:
		return KindAudio
	case sendVoiceExts[ext]:
		return KindVoice
	}
	switch mt := mime.TypeByExtension(ext); {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	}
	return KindDocument
}
