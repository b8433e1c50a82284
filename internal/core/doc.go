// Package core is the bulk import engine for campaign canvassing data.
//
// It reads spreadsheet and CSV uploads of canvassed persons, leaders,
// candidates and groups, maps their columns onto a fixed set of fields per
// entity, validates each row and upserts the records by natural key. It has
// no transport dependencies and is driven by both the HTTP server and the
// importctl command.
//
// # Flow
//
//  1. [Ingest] parses the upload into headers and row maps, with advisory
//     warnings for empty, very large or unrecognizable files.
//  2. [SuggestMapping] proposes a [FieldMapping] from the headers; the
//     operator confirms or edits it.
//  3. [Importer.Import] runs every row through [ApplyMapping] and
//     [ValidateRow] and upserts the survivors inside one transaction.
//  4. The [ImportResult] reports counts, per-row errors and warnings.
//
// # Pending relationships
//
// A person row may name its leader by national id before that leader
// exists. The person is then stored as PendingLeader(key) and the
// [Resolver] links it once the leader is created and an operator confirms.
// See [RelationshipState] for the allowed transitions.
//
// # Storage
//
// The engine talks to storage through [Store] and [Tx]. The postgres
// package is the production implementation; memstore backs tests and dry
// runs.
//
// # Error handling
//
// Row problems never fail a batch; they are collected as [ImportError]
// values. Only infrastructure faults abort a batch, as a
// [TransactionAbortedError]. [MapError] turns any error into an operator
// message with a support code.
package core
