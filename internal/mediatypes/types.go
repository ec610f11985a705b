package mediatypes

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileType represents the type of a listing entry.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "folder"
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeAudio represents an audio file.
	FileTypeAudio FileType = "audio"
	// FileTypeSubtitle represents a subtitle file.
	FileTypeSubtitle FileType = "subtitle"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".ico":  true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// VideoExtensions maps file extensions to whether they are streamable video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// AudioExtensions maps file extensions to whether they are audio formats.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".wav":  true,
	".aac":  true,
}

// SubtitleExtensions maps file extensions to whether they are subtitle formats.
var SubtitleExtensions = map[string]bool{
	".srt": true,
	".ass": true,
	".vtt": true,
}

// deniedExtensions are never listed or served. A browser would render
// them as active content from our origin.
var deniedExtensions = map[string]bool{
	".php":   true,
	".htm":   true,
	".html":  true,
	".js":    true,
	".xhtml": true,
	".svg":   true,
}

// GetFileType returns the FileType for a given file extension.
// The extension is matched case-insensitively and must include the leading dot.
func GetFileType(ext string) FileType {
	ext = strings.ToLower(ext)
	switch {
	case ImageExtensions[ext]:
		return FileTypeImage
	case VideoExtensions[ext]:
		return FileTypeVideo
	case AudioExtensions[ext]:
		return FileTypeAudio
	case SubtitleExtensions[ext]:
		return FileTypeSubtitle
	}
	return FileTypeOther
}

// IsDenied reports whether name has an extension that must not be listed
// or downloaded.
func IsDenied(name string) bool {
	return deniedExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsStreamable reports whether name looks like a video the transcoder accepts.
func IsStreamable(name string) bool {
	return GetFileType(filepath.Ext(name)) == FileTypeVideo
}

// DetectContentType sniffs the MIME type of r from its leading bytes.
// Unknown content falls back to application/octet-stream. Text types are
// reported as text/plain so that markup never renders inline.
func DetectContentType(r io.Reader) (string, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}

	if isActive(mtype) {
		return "text/plain; charset=utf-8", nil
	}
	return mtype.String(), nil
}

// isActive reports whether the detected type or any parent is a
// browser-executable document.
func isActive(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		switch m.Extension() {
		case ".html", ".svg", ".xhtml", ".js", ".php", ".xml":
			return true
		}
	}
	return false
}
