package transcoder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Profile selects the codec and container pairing of the output.
type Profile string

// Supported profiles.
const (
	ProfileWebM     Profile = "webm"
	ProfileMatroska Profile = "matroska"
)

// Quality selects the bitrate tier and, for HD, frame normalization.
type Quality string

// Supported quality tiers.
const (
	QualityStandard Quality = "standard"
	QualityHD       Quality = "hd"
)

type profileSpec struct {
	mimeType  string
	container string
	video     func(q Quality) []string
	audio     []string
}

var profiles = map[Profile]profileSpec{
	ProfileWebM: {
		mimeType:  "video/webm",
		container: "webm",
		video: func(q Quality) []string {
			bitrate := "4M"
			if q == QualityHD {
				bitrate = "8M"
			}
			return []string{
				"-c:v", "libvpx",
				"-b:v", bitrate,
				"-crf", "16",
				"-quality", "realtime",
				"-cpu-used", "8",
			}
		},
		audio: []string{"-c:a", "libvorbis", "-ac", "2", "-ar", "48000"},
	},
	ProfileMatroska: {
		mimeType:  "video/x-matroska",
		container: "matroska",
		video: func(q Quality) []string {
			crf, maxrate, bufsize := "23", "4M", "8M"
			if q == QualityHD {
				crf, maxrate, bufsize = "20", "10M", "20M"
			}
			return []string{
				"-c:v", "libx264",
				"-preset", "veryfast",
				"-crf", crf,
				"-maxrate", maxrate,
				"-bufsize", bufsize,
				"-movflags", "+faststart",
			}
		},
		audio: []string{"-c:a", "aac", "-b:a", "192k", "-ac", "2", "-ar", "48000"},
	},
}

// ParseProfile maps a query value to a Profile. An empty value selects WebM.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProfileWebM, nil
	case ProfileWebM, ProfileMatroska:
		return p, nil
	case "mkv":
		return ProfileMatroska, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, s)
	}
}

// Valid reports whether p is a supported profile.
func (p Profile) Valid() bool {
	_, ok := profiles[p]
	return ok
}

// MIMEType returns the Content-Type of streams encoded with p. It depends on
// nothing but the profile.
func (p Profile) MIMEType() string {
	return profiles[p].mimeType
}

// Valid reports whether q is a supported quality tier.
func (q Quality) Valid() bool {
	return q == QualityStandard || q == QualityHD
}

// ParseOffset parses a stream time offset given either as seconds ("90",
// "90.5") or as [[hh:]mm:]ss[.frac].
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: bad offset %q", ErrInvalidRequest, s)
	}

	var seconds float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || (i < len(parts)-1 && v != math.Trunc(v)) {
			return 0, fmt.Errorf("%w: bad offset %q", ErrInvalidRequest, s)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("%w: bad offset %q", ErrInvalidRequest, s)
		}
		seconds = seconds*60 + v
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
