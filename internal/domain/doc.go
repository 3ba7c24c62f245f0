// Package domain contains the core entities and value objects for devwrite.
//
// This package is the innermost layer. It has no dependencies on transport,
// file system or logging concerns and holds only the write-request model, the
// dispatcher bookkeeping, the display states and the error taxonomy.
//
// # Entities
//
//   - [Key]: coalescing identity of a write target (index, subindex)
//   - [WriteRequest]: a validated write waiting in the queue
//   - [RawEvent]: an unvalidated input event
//   - [DispatchState]: bookkeeping of the single-writer dispatcher
//   - [DisplayState]: one of the five projected status states
package domain
