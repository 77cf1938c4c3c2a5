// Package storage persists files atomically.
//
// Writes go to a temporary file in the destination directory and are
// renamed into place once complete, so an exported JSON or TXT file and a
// downloaded media file are either absent or whole.
package storage
