// Package queryir describes queries over the trace archive as data.
//
// Store methods build a Query value instead of concatenating SQL, and a
// backend compiler (see package querysql) turns it into a statement with
// bound parameters. Keeping the query as data lets the filter logic be
// tested without a database.
//
// The fragment is deliberately small:
//   - Select(from, columns, filter, order, limit)
//   - Predicates: Equals, And
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so compilers can switch over them exhaustively.
//
// Every Select carries an explicit order. A query without one is rejected
// by Validate, because archive listings must come back in the same order
// on every run.
package queryir
