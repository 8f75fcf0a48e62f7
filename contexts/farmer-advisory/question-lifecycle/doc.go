// Package questionlifecycle implements the farmer question lifecycle inside
// the farmer-advisory context.
//
// The module owns intake (classification, normalization and duplicate
// search), expert allocation, answer scoring, peer voting with moderator
// escalation, and moderator approval or rejection with reallocation. Domain
// rules are pure functions over question snapshots; persistence, locking and
// event delivery sit behind ports and adapters.
package questionlifecycle
