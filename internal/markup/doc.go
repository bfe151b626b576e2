// Package markup reads interactive elements out of HTML pages.
//
// Extract produces the element list handed to script generation; Features
// produces a readable summary that is indexed alongside the documentation.
// Both work on a goquery tree and never fail: unparseable input yields a
// PageStructure carrying a marker instead of elements.
package markup
