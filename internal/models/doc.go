// Package models defines the domain entities for tripledger.
//
//   - Person: an event member with an opaque unique id and a display name
//   - Activity: a validated, immutable expense with payers, participants
//     and a split strategy
//   - Event: the owner of people and activities, responsible for
//     referential integrity between them
//   - Transfer: one cash movement produced by settlement
//
// Identity is always the person id, never the name; two people may share
// a name. Balance and share maps elsewhere in the codebase are keyed by
// person id, with the event roster as the side table for names.
//
// Entities are constructed through New* functions that validate their
// inputs and return a *ValidationError on malformed data. Once built,
// activities never change; the one exception is weight renormalization,
// which happens exactly once inside NewActivity.
package models
