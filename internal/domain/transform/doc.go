// Package transform implements the declarative field-mapping pipeline that
// converts records between local and remote shapes. It is deliberately not
// a general-purpose expression evaluator: every transform is drawn from a
// fixed, whitelisted operation set so mappings stay auditable and safe.
// All operations are pure; nothing here performs I/O.
package transform
