package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is the category a filename was recognized as.
type Kind int

const (
	KindUnknown Kind = iota
	KindSeries
	KindMovie
	KindMusic
)

func (k Kind) String() string {
	switch k {
	case KindSeries:
		return "series"
	case KindMovie:
		return "movie"
	case KindMusic:
		return "music"
	default:
		return "unknown"
	}
}

// Info is what Parse could read out of a filename. Name is the display
// title and is empty when nothing was recognized.
type Info struct {
	Kind    Kind
	Tag     string
	Title   string
	Season  int
	Episode int
	Year    int
	Track   int
	Artist  string
	Name    string
}

const (
	videoExt = `mkv|mp4|avi`
	audioExt = `mp3|m4a|ogg|flac`
)

var (
	seriesPattern = regexp.MustCompile(`(?i)^(?:\[(.*)\]\.?)?([^\[\]]+)(?:\.|-)(?:S([0-9]{2}) ?E([0-9]{2})|([0-9]{1,2})X([0-9]{2}))(?:(?:\.|-)(.*))?\.(` + videoExt + `)$`)
	moviePattern  = regexp.MustCompile(`(?i)^(?:\[(.*)\]\.?)?([^\[\]]+)(?:\.|-)(\(?((?:19|20)[0-9]{2})\)?)(?:(?:\.|-)(.*))?\.(` + videoExt + `)$`)
	musicPattern  = regexp.MustCompile(`(?i)^(?:\[(.*)\]\.?)?(?:([0-9]{1,3})(?:-|\.))?(?:(.+[^0-9])-)?(?:([0-9]{1,3})-)?([^()]+)(?:\.\((.*)\))?\.(` + audioExt + `)$`)

	separatorRuns = regexp.MustCompile(`[. ]+`)
	dashRuns      = regexp.MustCompile(`\.*-+\.*`)
)

// Parse recognizes series episodes, movies and music tracks by their
// filename conventions.
func Parse(filename string) Info {
	clean := strings.ReplaceAll(filename, "_", " ")
	clean = separatorRuns.ReplaceAllString(clean, ".")
	clean = dashRuns.ReplaceAllString(clean, "-")

	if m := seriesPattern.FindStringSubmatch(clean); m != nil {
		info := Info{
			Kind:    KindSeries,
			Tag:     m[1],
			Title:   toTitle(m[2]),
			Season:  atoi(first(m[3], m[5])),
			Episode: atoi(first(m[4], m[6])),
		}
		info.Name = fmt.Sprintf("%s S%02dE%02d", info.Title, info.Season, info.Episode)
		return info
	}

	if m := moviePattern.FindStringSubmatch(clean); m != nil {
		info := Info{
			Kind:  KindMovie,
			Tag:   m[1],
			Title: toTitle(m[2]),
			Year:  atoi(m[4]),
		}
		info.Name = info.Title
		return info
	}

	if m := musicPattern.FindStringSubmatch(clean); m != nil {
		info := Info{
			Kind:   KindMusic,
			Tag:    m[1],
			Track:  atoi(first(m[2], m[4])),
			Artist: toTitle(m[3]),
			Title:  toTitle(m[5]),
		}
		info.Name = info.Title
		if info.Artist != "" {
			info.Name = info.Artist + ", " + info.Title
		}
		return info
	}

	return Info{}
}

// DisplayName returns the parsed display title of filename, or filename
// itself when it was not recognized.
func DisplayName(filename string) string {
	if name := Parse(filename).Name; name != "" {
		return name
	}
	return filename
}

func toTitle(s string) string {
	// Casers keep state, so each call gets its own.
	return cases.Title(language.Und).String(strings.TrimSpace(strings.ReplaceAll(s, ".", " ")))
}

func first(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
