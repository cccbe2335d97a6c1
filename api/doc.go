// Package api serves the food maze REST API over a service.GameService.
//
// Endpoints:
//
// Sessions:
//   - POST   /api/sessions                 create a session, body {"level_id": "..."} (empty selects the default level)
//   - GET    /api/sessions                 list sessions (?sort=accessed|created&order=asc|desc&limit=n)
//   - GET    /api/sessions/unified         several sessions at once (?sessionIds=a,b or ?levelId=pack/level)
//   - GET    /api/sessions/{id}            session details with the level and current snapshot
//   - DELETE /api/sessions/{id}            delete a session
//   - POST   /api/sessions/{id}/level      switch level, body {"level": "next"|"previous"|"<level id>"}
//
// Play:
//   - GET  /api/sessions/{id}/state        current snapshot
//   - POST /api/sessions/{id}/move         body {"direction": "up", "reset": false}
//   - POST /api/sessions/{id}/bulk-move    body {"moves": ["up", "left"], "reset": false}
//   - POST /api/sessions/{id}/reset        reload the level
//   - GET  /api/sessions/{id}/history      paginated move history (?page&limit&order)
//   - GET  /api/sessions/{id}/hint         shortest solution from the current state
//
// Levels:
//   - GET  /api/levels                     level summaries
//   - GET  /api/levels/{pack/level}        level descriptor
//   - POST /api/levels                     body {"level_id": "custom/one", "level": {...}}
//
// Other:
//   - GET /health
//   - GET /ws?session=<id>                 websocket state updates
//
// Errors are JSON objects {"error": "..."}. Unknown sessions and levels map
// to 404, bad directions and level ids to 400, levels that fail validation
// to 422, and everything else to 500.
//
// Every request gets an X-Request-ID header, taken from the request when the
// caller sent one, and is logged with logrus.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	server := api.NewServer(gameService, hub)
//	http.ListenAndServe(":8080", server)
package api
