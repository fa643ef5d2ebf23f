// Package docstore reads documents from a single-table SQLite store: one row
// per document with an id column and text and title content columns.
//
// Stores can be local files or http(s) URLs; remote stores are downloaded once
// into Options.DataDir and reused afterwards. Absent document ids are not
// errors: Content reports them with ok == false.
package docstore
