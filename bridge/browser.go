package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pixieuiii/pixiebridge/internal/telegram"
)

const (
	pageSize      = 12
	labelMaxRunes = 48
)

// Callback tokens travel as "br|action|arg..." and must stay inside the
// transport's 64-byte callback_data cap.
const (
	callbackPrefix    = "br"
	callbackDelimiter = "|"

	actionRoots  = "roots"
	actionOpen   = "open"
	actionSort   = "sort"
	actionFilter = "flt"
	actionFile   = "file"
	actionZip    = "zip"
	actionNoop   = "noop"
)

func callbackToken(parts ...string) string {
	return strings.Join(append([]string{callbackPrefix}, parts...), callbackDelimiter)
}

// Root is a quick-access top-level folder offered on the root list.
type Root struct {
	Label string
	Path  string
}

// QuickRoots lists the user's well-known folders that exist, then the
// filesystem root.
func QuickRoots() []Root {
	var roots []Root
	seen := make(map[string]bool)
	add := func(label, path string) {
		key := filepath.Clean(path)
		if seen[key] {
			return
		}
		if fi, err := os.Stat(path); err != nil || !fi.IsDir() {
			return
		}
		seen[key] = true
		roots = append(roots, Root{Label: label, Path: key})
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		for _, name := range []string{"Desktop", "Downloads", "Documents", "Pictures", "Music", "Videos"} {
			add(name, filepath.Join(home, name))
		}
		add("Home", home)
	}
	add("/", string(os.PathSeparator))
	return roots
}

// Browser renders root lists and paginated folder views as inline
// keyboards.
type Browser struct {
	roots func() []Root
}

func NewBrowser(roots func() []Root) *Browser {
	if roots == nil {
		roots = QuickRoots
	}
	return &Browser{roots: roots}
}

// RootsText is the message body accompanying the root keyboard.
func RootsText(prefs Preferences) string {
	return "File browser:\n" +
		fmt.Sprintf("Sort: %s | Filter: %s\n", prefs.Sort, prefs.Filter) +
		"Choose a folder to continue.\n" +
		"You can keep drilling down, then tap a file to send it."
}

// RootsKeyboard registers every quick root in the session and renders one
// button per root.
func (b *Browser) RootsKeyboard(sess *Session) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for _, root := range b.roots() {
		sid := sess.RegisterPath(root.Path)
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         root.Label,
			CallbackData: callbackToken(actionOpen, sid, "0"),
		}})
	}
	if len(rows) == 0 {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         "No roots found",
			CallbackData: callbackToken(actionNoop),
		}})
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

type childEntry struct {
	name    string
	path    string
	modTime time.Time
	isDir   bool
}

// listFolder enumerates the immediate children of folder, drops files that
// fail the filter, and sorts directories and files independently.
func listFolder(folder string, prefs Preferences) (dirs, files []childEntry) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, nil
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		child := childEntry{
			name:    e.Name(),
			path:    filepath.Join(folder, e.Name()),
			modTime: info.ModTime(),
			isDir:   e.IsDir(),
		}
		if child.isDir {
			dirs = append(dirs, child)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if !matchesFilter(child.path, prefs.Filter) {
			continue
		}
		files = append(files, child)
	}

	sortEntries := func(list []childEntry) {
		if prefs.Sort == SortName {
			sort.SliceStable(list, func(i, j int) bool {
				return strings.ToLower(list[i].name) < strings.ToLower(list[j].name)
			})
			return
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].modTime.After(list[j].modTime)
		})
	}
	sortEntries(dirs)
	sortEntries(files)
	return dirs, files
}

// clampPage confines page to the valid range for total items: at least one
// page always exists, even for an empty listing.
func clampPage(page, total int) (clamped, totalPages int) {
	totalPages = (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	return page, totalPages
}

func truncateLabel(name string) string {
	runes := []rune(name)
	if len(runes) <= labelMaxRunes {
		return name
	}
	return string(runes[:labelMaxRunes-3]) + "..."
}

// FolderView is a rendered folder page: the message text plus its keyboard.
type FolderView struct {
	Text   string
	Markup *telegram.InlineKeyboardMarkup
	Page   int
	Pages  int
}

// FolderView renders folder at the requested page under the session's
// preferences, registering every referenced path.
func (b *Browser) FolderView(sess *Session, folder string, page int) FolderView {
	prefs := sess.Prefs()
	dirs, files := listFolder(folder, prefs)
	items := append(append([]childEntry(nil), dirs...), files...)
	page, totalPages := clampPage(page, len(items))

	start := page * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	visible := items[start:end]

	var rows [][]telegram.InlineKeyboardButton

	// Parent of the filesystem root is itself, which keeps Up well-defined.
	parent := filepath.Dir(folder)
	parentSID := sess.RegisterPath(parent)
	rows = append(rows, []telegram.InlineKeyboardButton{
		{Text: "Roots", CallbackData: callbackToken(actionRoots)},
		{Text: "Up", CallbackData: callbackToken(actionOpen, parentSID, "0")},
	})

	sortTarget := SortName
	sortLabel := "Sort:Name"
	if prefs.Sort == SortName {
		sortTarget = SortRecent
		sortLabel = "Sort:Recent"
	}
	rows = append(rows, []telegram.InlineKeyboardButton{
		{Text: sortLabel, CallbackData: callbackToken(actionSort, sortTarget)},
		{Text: "Filter:" + prefs.Filter, CallbackData: callbackToken(actionNoop)},
	})
	rows = append(rows, []telegram.InlineKeyboardButton{
		{Text: "All", CallbackData: callbackToken(actionFilter, FilterAll)},
		{Text: "Photo", CallbackData: callbackToken(actionFilter, string(GroupPhoto))},
		{Text: "Video", CallbackData: callbackToken(actionFilter, string(GroupVideo))},
		{Text: "Audio", CallbackData: callbackToken(actionFilter, string(GroupAudio))},
	})
	rows = append(rows, []telegram.InlineKeyboardButton{
		{Text: "Code", CallbackData: callbackToken(actionFilter, string(GroupCode))},
		{Text: "Text", CallbackData: callbackToken(actionFilter, string(GroupText))},
		{Text: "PDF", CallbackData: callbackToken(actionFilter, string(GroupPDF))},
		{Text: "Doc", CallbackData: callbackToken(actionFilter, string(GroupDoc))},
	})

	folderSID := sess.RegisterPath(folder)
	rows = append(rows, []telegram.InlineKeyboardButton{{
		Text:         "Zip+Send This Folder",
		CallbackData: callbackToken(actionZip, folderSID),
	}})

	for _, child := range visible {
		sid := sess.RegisterPath(child.path)
		if child.isDir {
			rows = append(rows, []telegram.InlineKeyboardButton{{
				Text:         folderIcon + " " + truncateLabel(child.name),
				CallbackData: callbackToken(actionOpen, sid, "0"),
			}})
			continue
		}
		label := fmt.Sprintf("%s %s · %s",
			groupIcon(GroupForPath(child.path)),
			truncateLabel(child.name),
			child.modTime.Format("2006-01-02"),
		)
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         label,
			CallbackData: callbackToken(actionFile, sid),
		}})
	}

	var nav []telegram.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, telegram.InlineKeyboardButton{
			Text:         "Prev",
			CallbackData: callbackToken(actionOpen, folderSID, strconv.Itoa(page-1)),
		})
	}
	if page < totalPages-1 {
		nav = append(nav, telegram.InlineKeyboardButton{
			Text:         "Next",
			CallbackData: callbackToken(actionOpen, folderSID, strconv.Itoa(page+1)),
		})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	text := fmt.Sprintf("Folder: %s\nSort: %s | Filter: %s\nFolders: %d | Files: %d | Items: %d",
		folder, prefs.Sort, prefs.Filter, len(dirs), len(files), len(items))

	return FolderView{
		Text:   text,
		Markup: &telegram.InlineKeyboardMarkup{InlineKeyboard: rows},
		Page:   page,
		Pages:  totalPages,
	}
}
