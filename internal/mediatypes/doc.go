// Package mediatypes classifies files for listings and downloads.
//
// GetFileType maps an extension to a FileType used by the listing JSON and
// by the stream endpoint to decide what can be transcoded.
//
// IsDenied is the download denylist: files ending in .php, .htm, .html,
// .js, .xhtml or .svg are hidden from listings and refused with 403 before
// their path reaches any other component.
//
// DetectContentType sniffs a download's Content-Type from its first bytes
// with github.com/gabriel-vasile/mimetype rather than trusting the
// extension. Markup that slipped past the denylist is downgraded to
// text/plain.
package mediatypes
