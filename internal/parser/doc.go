// Package parser derives display titles from media filenames.
//
// Three conventions are recognized, tried in order:
//
//	Show.Name.S01E02.720p.mkv      series, named "Show Name S01E02"
//	Movie.Title.(1999).1080p.mp4   movie, named "Movie Title"
//	01-Artist-Song.Title.flac      music, named "Artist, Song Title"
//
// Underscores and runs of dots or spaces are treated as word separators.
// Titles are title-cased with golang.org/x/text/cases; accented letters
// are kept as they are.
package parser
