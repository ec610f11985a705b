// Package access maps a user and a virtual path to a real filesystem location.
//
// A virtual path is rooted either at a registered directory the user holds a
// grant on (read or read-write) or at the user's private storage area, which
// is always writable. Paths are cleaned before they are joined so that no
// virtual path can escape its root.
//
// The package also mints and resolves share links: eight-character tokens
// bound to an owner and a path that resolve for seven days. A link carries
// the owner's access as of its creation; later grant changes do not revoke
// it.
package access
