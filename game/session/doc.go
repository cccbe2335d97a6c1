// Package session keeps food maze game sessions in memory and on disk.
//
// A Manager maps case-insensitive session ids to sessions, each owning its
// own engine. Ids chosen by callers must be file-name safe; an empty id gets
// a random 4-character hex id. With a SessionPersistence attached, new
// sessions are saved on creation and unknown ids are looked up on disk, so a
// restarted server picks up where players left off.
//
// FilePersistence writes one JSON document per session containing the level
// being played and the saved engine state. Documents without an embedded
// level are rebuilt from the level catalog by level id.
//
// Usage:
//
//	levels, _ := config.NewManager("levels")
//	store, err := session.NewFilePersistence("sessions", levels)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//
//	id, level := levels.GetDefault()
//	sess, err := manager.Create("", id, level)
package session
