// Package dynsoa implements an adaptive data-layout runtime for parallel
// simulation workloads.
//
// # Reading Guide
//
// Start with these files to understand the closed feedback loop:
// - entity_store.go: columnar storage, SoA <-> AoSoA transforms, matrix blocks
// - metrics.go: per-kernel sample ingestion, EWMA and sliding-window aggregates
// - scheduler.go: policy evaluation, budget-gated applier, and the online
// learner that updates the gain-model coefficients
// - bandit.go: UCB1 action selection and per-action bandit statistics
//
// # Architecture
//
// Every piece of mutable state lives on a Runtime, created with New and
// released with Close. There are no package-level globals: callers that want
// the reference implementation's "one process-wide runtime" behavior simply
// keep a single *Runtime around, while tests can create as many independent
// runtimes as they like.
//
// - dynsoa/policy: declarative trigger/predicate types, no dependency on
// this package's types (pure data, mirrors the layout of dynsoa/trace).
// - dynsoa/trace: decision-trace record types for the verbose/learn-log
// output, also dependency-free.
//
// # Key types
//
// - Registry: component/archetype schema
// - Store: per-view columnar storage and layout transforms
// - Metrics: per-kernel sample ingestion and aggregation
// - Scheduler: policy-driven retile decisions, bandit statistics, and online learning
package dynsoa
