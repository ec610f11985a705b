package transcoder

import "strings"

// Option is one filter argument. An empty Key makes it positional.
type Option struct {
	Key   string
	Value string
}

// Filter is a single named step of a filter chain.
type Filter struct {
	Name    string
	Options []Option
}

// Chain is an ordered list of filters applied to one video stream.
type Chain []Filter

// Kv builds a keyed option.
func Kv(key, value string) Option { return Option{Key: key, Value: value} }

// Pos builds a positional option.
func Pos(value string) Option { return Option{Value: value} }

// NewFilter builds a filter step.
func NewFilter(name string, opts ...Option) Filter {
	return Filter{Name: name, Options: opts}
}

// String renders the filter description with option values escaped for the
// option parser.
func (f Filter) String() string {
	if len(f.Options) == 0 {
		return f.Name
	}

	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte('=')
	for i, opt := range f.Options {
		if i > 0 {
			b.WriteByte(':')
		}
		if opt.Key != "" {
			b.WriteString(opt.Key)
			b.WriteByte('=')
		}
		b.WriteString(escapeOption(opt.Value))
	}
	return b.String()
}

// String renders the chain as a filtergraph: each filter description is
// escaped a second time for the graph parser and the filters are joined
// with commas.
func (c Chain) String() string {
	parts := make([]string, len(c))
	for i, f := range c {
		parts[i] = escapeGraph(f.String())
	}
	return strings.Join(parts, ",")
}

// Empty reports whether the chain has no filters.
func (c Chain) Empty() bool { return len(c) == 0 }

var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

func escapeOption(s string) string { return optionEscaper.Replace(s) }

func escapeGraph(s string) string { return graphEscaper.Replace(s) }

// hdFilters fits the frame into 1920x1080 keeping its aspect ratio and pads
// it, centered, to exactly 1920x1080 with black bars.
func hdFilters() []Filter {
	return []Filter{
		NewFilter("scale",
			Kv("w", "1920"),
			Kv("h", "1080"),
			Kv("force_original_aspect_ratio", "decrease"),
		),
		NewFilter("pad",
			Pos("1920"),
			Pos("1080"),
			Pos("(ow-iw)/2"),
			Pos("(oh-ih)/2"),
			Pos("black"),
		),
	}
}

// srtCharset is the encoding sidecar .srt files are read with.
const srtCharset = "CP1252"

func sidecarSubtitleFilter(srtPath string) Filter {
	return NewFilter("subtitles", Kv("filename", srtPath), Kv("charenc", srtCharset))
}

func embeddedSubtitleFilter(sourcePath string) Filter {
	return NewFilter("subtitles", Kv("filename", sourcePath))
}
