// Package watch converts recordings as they arrive in a directory.
//
// Sonar topside software writes recordings incrementally, so a create event
// alone does not mean the file is complete. The watcher tracks each matching
// file's size and only hands it off once the size has held steady for a
// configured settle window.
package watch
