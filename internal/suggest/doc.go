// Package suggest finds the closest known name for a misspelled one.
//
// Names are compared after case folding and separator stripping, so
// "first_name", "firstName" and "FirstName" are considered identical.
package suggest
