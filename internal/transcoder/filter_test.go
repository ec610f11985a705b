package transcoder

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFilterString(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{
			name:   "no options",
			filter: NewFilter("hflip"),
			want:   "hflip",
		},
		{
			name:   "keyed",
			filter: NewFilter("scale", Kv("w", "1920"), Kv("h", "1080")),
			want:   "scale=w=1920:h=1080",
		},
		{
			name:   "positional",
			filter: NewFilter("pad", Pos("1920"), Pos("1080")),
			want:   "pad=1920:1080",
		},
		{
			name:   "colon in value",
			filter: NewFilter("subtitles", Kv("filename", `C:\films\a.srt`)),
			want:   `subtitles=filename=C\:\\films\\a.srt`,
		},
		{
			name:   "quote in value",
			filter: NewFilter("subtitles", Kv("filename", "/m/it's.srt")),
			want:   `subtitles=filename=/m/it\'s.srt`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChainString(t *testing.T) {
	chain := Chain{
		NewFilter("scale", Kv("w", "1920")),
		NewFilter("subtitles", Kv("filename", "/m/a,b[1];x.srt")),
	}

	want := `scale=w=1920,subtitles=filename=/m/a\,b\[1\]\;x.srt`
	if got := chain.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestChainStringDoubleEscapesQuotes(t *testing.T) {
	chain := Chain{NewFilter("subtitles", Kv("filename", "it's"))}

	// Option level gives it\'s; graph level escapes both characters again.
	want := `subtitles=filename=it\\\'s`
	if got := chain.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestChainEmpty(t *testing.T) {
	var chain Chain
	if !chain.Empty() {
		t.Error("nil chain should be empty")
	}
	if chain.String() != "" {
		t.Errorf("empty chain String() = %q", chain.String())
	}
	chain = append(chain, NewFilter("hflip"))
	if chain.Empty() {
		t.Error("chain with one filter reported empty")
	}
}

func TestHDFilters(t *testing.T) {
	got := Chain(hdFilters()).String()
	want := "scale=w=1920:h=1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:black"
	if got != want {
		t.Errorf("hdFilters = %q, want %q", got, want)
	}
}

func TestSubtitleFilters(t *testing.T) {
	side := sidecarSubtitleFilter("/m/film.srt").String()
	if side != "subtitles=filename=/m/film.srt:charenc=CP1252" {
		t.Errorf("sidecar filter = %q", side)
	}

	embedded := embeddedSubtitleFilter("/m/film.mkv").String()
	if embedded != "subtitles=filename=/m/film.mkv" {
		t.Errorf("embedded filter = %q", embedded)
	}
	if strings.Contains(embedded, "charenc") {
		t.Error("embedded filter should not force a charset")
	}
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{"", ProfileWebM, false},
		{"webm", ProfileWebM, false},
		{"WebM", ProfileWebM, false},
		{"matroska", ProfileMatroska, false},
		{"mkv", ProfileMatroska, false},
		{"mp4", "", true},
		{"avi", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProfile(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("ParseProfile(%q) error = %v, want ErrInvalidRequest", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProfile(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseProfile(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestProfileMIMEType(t *testing.T) {
	if got := ProfileWebM.MIMEType(); got != "video/webm" {
		t.Errorf("webm MIME = %q", got)
	}
	if got := ProfileMatroska.MIMEType(); got != "video/x-matroska" {
		t.Errorf("matroska MIME = %q", got)
	}
	if Profile("mp4").Valid() {
		t.Error("mp4 should not be a valid profile")
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"90", 90 * time.Second, false},
		{"90.5", 90*time.Second + 500*time.Millisecond, false},
		{"1:30", 90 * time.Second, false},
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second, false},
		{"00:00:01.25", 1250 * time.Millisecond, false},
		{"-5", 0, true},
		{"1:60", 0, true},
		{"1.5:00", 0, true},
		{"1:2:3:4", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOffset(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("ParseOffset(%q) error = %v, want ErrInvalidRequest", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOffset(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseOffset(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
