// Package filesystem loads session documents from local files.
//
// A Loader expands directories into the files a normaliser registry can
// read, skipping hidden paths, and hands each file to an Ingester.
// A Watcher reports changes under a directory tree so that a long-running
// server can reload its session.
package filesystem
