// Package service provides the business logic layer for the food maze server.
//
// The service package implements:
//   - Multi-session game management
//   - Level catalog access and pack navigation
//   - Move processing with per-token event extraction
//   - Move history pagination
//   - Solver-backed hints
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and persistence.
// LevelCatalog loads levels by id and walks level packs in order.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and the
// game engine. Each session owns its own engine; every call is serialized by
// the service and traced with an OpenTelemetry span.
//
// Usage:
//
//	sessions := session.NewManager()
//	levels, _ := config.NewManager("levels")
//	svc := service.NewGameService(sessions, levels)
//
//	info, err := svc.CreateSession(ctx, "tutorial/corridor")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := svc.Move(ctx, info.ID, "right", false)
package service
