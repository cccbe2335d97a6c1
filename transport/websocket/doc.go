// Package websocket pushes food maze state to browsers watching a session.
//
// A Hub groups connections by session id. Clients connect to /ws?session=<id>
// and only receive messages for that session; anything they send is read and
// discarded.
//
// Outgoing messages are JSON:
//
//	{"session_id": "ab12", "event": "state_update", "snapshot": {...}}
//
// The API server broadcasts a state_update after every move, bulk move, reset
// and level change, and a level_change event carrying the new level id when
// a session switches levels.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.BroadcastToSession(sessionID, eng.Snapshot())
//
// The client map belongs to the Run goroutine. Broadcasts are queued and
// dropped with a warning when the queue is full; a client that cannot keep up
// is disconnected.
package websocket
