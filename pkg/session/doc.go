/*
Package session manages boards: it rehydrates a board's store from its event
log on first use and keeps one writer per board.

Within a process, each board has a reference-counted mutex. Across replicas an
optional ports.DistributedLocker serializes appends, and a replica whose cached
board falls behind the log drops it and replays on the next access.
*/
package session
