// Package diagnostic collects coded findings about entity declarations.
//
// The analyzer reports field types the mapper cannot convert, keys that
// collide and tags that have no effect. Errors block generation; warnings and
// infos are only logged.
package diagnostic
