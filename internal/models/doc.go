// Package models defines the core domain models for scanbill.
//
// # Models
//
//   - Bill: one finalized, persisted transaction with a total and a timestamp
//   - BillItem: one priced line within a Bill, derived from a single scanned code
//   - BillSummary: a Bill annotated with its item count (dashboard listing)
//   - JoinedItem: a BillItem joined with its owning Bill (admin table and exports)
//   - DailyStats: per-day aggregates for the dashboard
//
// # Invariants
//
//  1. A Bill's TotalAmount always equals the sum of its items' prices
//  2. No committed BillItem exists without an owning Bill
//  3. No Bill exists with zero items
//
// Relationships use integer IDs rather than pointers.
package models
