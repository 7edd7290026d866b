/*
Package swimlane is an event-sourced canvas for event modeling: boards of Role, Command, Event and View nodes laid out on a swimlane grid, with cursors that select them.

A board changes only through events. Every on-screen value (a node's transform, a cursor's offset, the transform of a selection) is derived reactively from the grid position it depends on, so moving a node moves every selection that points at it.

# Concept

The core (pkg/store) is an in-memory board that applies events in order and keeps a version counter. The session manager (pkg/session) serializes events per board, appends them to an event log (memory or Redis) and replays that log to rehydrate a board. HTTP, SSE and MCP adapters expose the same boards to browsers and agents.

# Key Features

  - Reactive geometry: node, cursor and selection transforms recompute when their grid position changes.
  - Event log: boards are rebuilt by replaying their log, so any replica can serve any board.
  - Per-board ordering: one writer per board in process, plus an optional Redis lock across replicas.
  - Snapshot diffs: SSE subscribers get a full snapshot, then only what changed.

# Usage

Canvas is the in-process entry point for a single board:

	package main

	import (
		"fmt"

		"github.com/aretw0/swimlane"
		"github.com/aretw0/swimlane/pkg/domain"
	)

	func main() {
		canvas := swimlane.New()

		node, _ := canvas.CreateNode("Register", domain.NodeTypeCommand, 0, 1)
		cursor, _ := canvas.CreateCursor("me", 0, 0)
		_, _ = canvas.ToggleSelection(cursor, node)

		fmt.Println(canvas.Snapshot().Version) // 3
	}

For served boards use session.NewManager with an event log from pkg/adapters/memory or pkg/adapters/redis, and mount pkg/adapters/http on top of it. The swimlane command (cmd/swimlane) wires all of this from a config file.
*/
package swimlane
