// Package html provides a Normaliser implementation for HTML pages.
// An uploaded page is both the page under test and a knowledge document:
// the raw markup is returned for structure extraction, and a readable
// summary of its forms, buttons, selects, headers and visible text becomes
// the document content.
package html
