// Package config provides the level catalog for the food maze server.
//
// Levels are JSON files below a levels directory. Subdirectories are level
// packs, and a level id is the slash separated path without the .json
// extension, for example "tutorial/corridor". Ids that would leave the
// levels directory are rejected.
//
// The Manager caches decoded levels, lists them with a short summary of their
// mechanisms, and steps through a pack in sorted order with NextLevel and
// PreviousLevel. When no level in the directory is valid it falls back to a
// small built-in level so the server can always start.
//
// Usage:
//
//	levels, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	level, err := levels.LoadLevel("tutorial/corridor")
//	next, err := levels.NextLevel("tutorial/corridor")
package config
