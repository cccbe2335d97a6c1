// Package mcp exposes the food maze to Model Context Protocol clients.
//
// The Client is an MCP server whose tools call the REST API served by the
// api package, so an agent plays the same sessions a browser watches over
// the websocket.
//
// Tools:
//   - create_session, list_sessions, get_session, change_level
//   - game_state, move, bulk_move, reset_game, move_history
//   - hint, describe_cell
//   - list_levels, game_instructions
//
// Responses are plain text. Snapshots are drawn with engine.RenderSnapshot
// followed by engine.RenderLegend.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
