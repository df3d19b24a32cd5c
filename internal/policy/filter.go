// Package policy implements the classification rules of the decision engine:
// the static blacklist/whitelist tables and the ordered editability rule set.
// Everything here is a pure function of an ElementDescriptor so rules can be
// tested without any OS dependency.
package policy

import (
	"strings"
	"sync"
)

// processBlacklist lists system processes whose windows never host user
// text entry. Matched against the lowercased executable name.
var processBlacklist = []string{
	"logonui.exe",
	"lockapp.exe",
	"consent.exe",
	"csrss.exe",
	"winlogon.exe",
	"dwm.exe",
	"searchhost.exe",
	"shellexperiencehost.exe",
	"startmenuexperiencehost.exe",
}

// classBlacklist lists window classes of system chrome: taskbar, tray,
// desktop, menus, tooltips, task switcher. Focus landing on these is never
// deliberate text entry.
var classBlacklist = []string{
	"shell_traywnd",
	"shell_secondarytraywnd",
	"traynotifywnd",
	"notifyiconoverflowwindow",
	"progman",
	"workerw",
	"#32768", // popup menu
	"#32769", // desktop backdrop
	"tooltips_class32",
	"sysshadow",
	"tasklistthumbnailwnd",
	"taskswitcherwnd",
	"multitaskingviewframe",
	"foregroundstaging",
}

// editorClassPrefixes match known text-editing control classes. Prefix
// match because rich-edit controls carry version suffixes (RichEdit20W,
// RICHEDIT50W) and Scintilla hosts decorate the base name.
var editorClassPrefixes = []string{
	"edit",
	"richedit",
	"scintilla",
	"tmemo",
	"tedit",
	"trichedit",
	"textbox",
}

// browserClasses are render-widget classes of browsers and Electron apps.
// These widgets do not expose a distinct edit role per text field, so the
// rules treat them specially.
var browserClasses = []string{
	"chrome_renderwidgethosthwnd",
	"chrome_widgetwin_1",
	"mozillawindowclass",
	"internet explorer_server",
}

// consoleClasses are terminal host window classes.
var consoleClasses = []string{
	"consolewindowclass",
	"cascadia_hosting_window_class",
	"mintty",
	"virtualconsoleclass",
	"putty",
}

// Filter holds the static accept/reject tables plus user-supplied extras
// from the settings file. Extras are swappable at runtime for hot reload;
// the built-in tables are fixed.
type Filter struct {
	mu             sync.RWMutex
	extraProcesses map[string]struct{}
	extraClasses   map[string]struct{}
}

// NewFilter creates a filter with the built-in tables only.
func NewFilter() *Filter {
	return &Filter{
		extraProcesses: make(map[string]struct{}),
		extraClasses:   make(map[string]struct{}),
	}
}

// SetExtras replaces the user-supplied blacklist entries.
func (f *Filter) SetExtras(processes, classes []string) {
	ep := make(map[string]struct{}, len(processes))
	for _, p := range processes {
		ep[strings.ToLower(p)] = struct{}{}
	}
	ec := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		ec[strings.ToLower(c)] = struct{}{}
	}

	f.mu.Lock()
	f.extraProcesses = ep
	f.extraClasses = ec
	f.mu.Unlock()
}

// IsProcessBlocked reports whether the executable name is blacklisted.
func (f *Filter) IsProcessBlocked(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, p := range processBlacklist {
		if lower == p {
			return true
		}
	}

	f.mu.RLock()
	_, ok := f.extraProcesses[lower]
	f.mu.RUnlock()
	return ok
}

// IsClassBlocked reports whether the window class is blacklisted.
func (f *Filter) IsClassBlocked(class string) bool {
	if class == "" {
		return false
	}
	lower := strings.ToLower(class)
	for _, c := range classBlacklist {
		if lower == c {
			return true
		}
	}

	f.mu.RLock()
	_, ok := f.extraClasses[lower]
	f.mu.RUnlock()
	return ok
}

// IsEditorClass reports whether the class matches the editor whitelist.
func (f *Filter) IsEditorClass(class string) bool {
	lower := strings.ToLower(class)
	for _, prefix := range editorClassPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// IsBrowserClass reports whether the class is a browser/Electron render
// widget.
func (f *Filter) IsBrowserClass(class string) bool {
	lower := strings.ToLower(class)
	for _, c := range browserClasses {
		if lower == c {
			return true
		}
	}
	return false
}

// IsConsoleClass reports whether the class indicates a console/terminal.
func (f *Filter) IsConsoleClass(class string) bool {
	lower := strings.ToLower(class)
	for _, c := range consoleClasses {
		if lower == c {
			return true
		}
	}
	return strings.Contains(lower, "console")
}
