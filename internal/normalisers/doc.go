// Package normalisers provides implementations of the Normaliser interface
// for the file formats accepted by ingestion. Each normaliser decodes the
// files with specific extensions into a SourceDocument.
//
// Normalisers are registered with the Registry at startup. Files with an
// unknown extension are decoded as plain text.
package normalisers
