/*
Package ports defines the driven ports (interfaces) of the board service.

These interfaces decouple the domain store from external implementations, so
boards can be served from memory or coordinated through Redis.

# Key Interfaces

  - EventLog: the append-only, per-board ordering point for applied events.
  - DistributedLocker: provides distributed locking so one replica writes a board at a time.
*/
package ports
