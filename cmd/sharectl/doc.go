// Command sharectl administers the Media Share database.
//
// Users, shareable directories and access grants are managed here rather
// than through the web interface. The server picks up directory changes on
// its next maintenance pass.
//
// Usage:
//
//	sharectl user add <name>
//	sharectl user passwd <name>
//	sharectl user del <name>
//	sharectl user list
//	sharectl dir add <path> [name]
//	sharectl dir del <name>
//	sharectl dir list
//	sharectl grant <user> <directory> <none|read|write>
//	sharectl status
//
// Passwords are read without echo when stdin is a terminal, and one per line
// otherwise, so that
//
//	printf 'pw\npw\n' | sharectl user add alice
//
// works in scripts. Changing a password invalidates the user's sessions.
// Granting level none keeps the grant row and revokes access; share links
// the user already created keep working until they expire.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
package main
