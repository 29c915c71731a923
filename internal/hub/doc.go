// Package hub broadcasts state snapshots to connected observers.
//
// A [Hub] holds the latest snapshot and a set of observers, each with its own
// bounded queue. Publishing never waits on an observer: a full queue drops
// its oldest entry. New observers receive the current state on subscribe.
package hub
