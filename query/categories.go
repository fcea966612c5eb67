package query

import "strings"

// typeCategories maps a type: category name to its extension set (spec
// §4.G: "pictures, video, audio, docs, presentations, spreadsheets, pdf,
// archives, code, exe"). Extensions are lowercase, no leading dot.
var typeCategories = map[string][]string{
	"pictures":      {"jpg", "jpeg", "png", "gif", "bmp", "webp", "tiff", "heic", "svg"},
	"video":         {"mp4", "mkv", "avi", "mov", "wmv", "flv", "webm", "m4v"},
	"audio":         {"mp3", "wav", "flac", "aac", "ogg", "m4a", "wma"},
	"docs":          {"doc", "docx", "odt", "rtf", "txt", "md"},
	"presentations": {"ppt", "pptx", "odp", "key"},
	"spreadsheets":  {"xls", "xlsx", "ods", "csv"},
	"pdf":           {"pdf"},
	"archives":      {"zip", "rar", "7z", "tar", "gz", "bz2", "xz"},
	"code":          {"go", "c", "cc", "cpp", "h", "hpp", "rs", "py", "js", "ts", "java", "rb"},
	"exe":           {"exe", "msi", "app", "bat", "sh", "bin"},
}

// typeSynonyms maps documented synonyms onto the canonical category name.
var typeSynonyms = map[string]string{
	"pics": "pictures", "images": "pictures", "photos": "pictures",
	"movies": "video", "vid": "video",
	"music": "audio", "songs": "audio",
	"doc": "docs", "document": "docs", "documents": "docs",
	"slides": "presentations", "ppt": "presentations",
	"sheets": "spreadsheets", "xls": "spreadsheets",
	"zip": "archives", "compressed": "archives",
	"source": "code", "src": "code",
	"executable": "exe", "executables": "exe", "apps": "exe",
}

// resolveTypeCategory resolves a category name (or synonym) to its
// extension set.
func resolveTypeCategory(name string) ([]string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if exts, ok := typeCategories[name]; ok {
		return exts, true
	}
	if canon, ok := typeSynonyms[name]; ok {
		return typeCategories[canon], true
	}
	return nil, false
}

// macroCategory maps a macro filter kind (audio:/video:/doc:/exe:) to the
// type: category it expands to.
var macroCategory = map[string]string{
	"audio": "audio",
	"video": "video",
	"doc":   "docs",
	"exe":   "exe",
}
