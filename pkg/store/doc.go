/*
Package store implements the domain store of a board.

A Workflow owns the node and cursor registries and is their single writer.
Events are applied strictly in call order through Apply; derived geometry is
never pushed to dependents, it is recomputed lazily when next read.
*/
package store
