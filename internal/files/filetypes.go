package files

import (
	"path/filepath"
	"strings"
)

// PostPattern matches every Markdown post below the workspace root.
const PostPattern = "**/*.md"

// BinaryExtensions contains file extensions that are never opened as post text.
var BinaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".webp": true, ".bmp": true,
	".pdf": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".mp3": true, ".wav": true, ".ogg": true, ".m4a": true,
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
}

// IsBinaryFile checks if a file path has a binary extension.
func IsBinaryFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return BinaryExtensions[ext]
}

// frontMatter is the skeleton written into newly created posts.
func frontMatter(created string) string {
	return "---\ntitle: New Post\ndate: " + created + "\n---\n\n"
}
