// Package connectors provides the document sources ingestion reads from.
// The filesystem connector loads documentation and page markup from local
// files and watches a docs directory for changes.
package connectors
