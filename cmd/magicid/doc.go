// Package main hosts the magicid CLI entrypoint and command graph.
//
// magicid builds a perceptual hash database from a library of card scans and
// ranks the database against a photographed or scanned reference card. The
// commands are thin: they resolve configuration, open the card database or
// the history store, and hand off to the internal generation and comparison
// pipelines.
package main
