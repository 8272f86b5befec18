// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

// Package shadowjson implements a high-throughput JSON parser and a
// schema-driven value loader whose distinguishing feature is a shared
// "shadow class" trie that deduplicates object key-sets across a document
// and across successive parses by the same Parser instance.
//
// # Parsing
//
// A Parser reads a resident byte slice of JSON text and builds a flat
// assembly buffer of Node records. Composite values (arrays, objects, and
// the non-standard "multi" top-level sequence) hold a Span into that
// buffer rather than a pointer, so the tree survives buffer growth without
// any node needing to be patched:
//
//	p := shadowjson.New(nil)
//	root, err := p.Parse([]byte(`{"id":1,"tags":["a","b"]}`))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	class := shadowjson.ClassOf(root, p.Assembly())
//	log.Printf("keys: %v", class.Len())
//
// Every object Node's class is interned in the Parser's ShadowTrie: two
// objects with the same ordered key sequence, whether within one document
// or across successive Parse calls on the same Parser, share one
// *ObjectClass pointer. This amortises key hashing to a single lookup per
// key for documents with repeated shapes (log records, change feeds, CDC
// payloads).
//
// # Assembly buffer growth
//
// Because array/object/multi Nodes are indices into a growable slice
// rather than pointers into it, the Parser is free to grow the assembly
// buffer during a parse without invalidating anything already recorded.
// It still follows the aggressive growth-and-restart discipline this
// design is built around: grow to 4x the required size, remember the new
// high-water mark, and retry the whole parse from byte zero. After the
// first few restarts on inputs of a given size, later parses of similarly
// sized input reuse the existing buffer without restarting.
//
// # Loading
//
// Package loader (github.com/gauntlet-dev/shadowjson/loader) consumes a
// Node tree and a target Go type, using reflection driven by the shared
// class's index map to resolve struct fields in O(1) per field rather than
// scanning the object's members for each one.
//
// # Dialects and batching
//
// Package dialect (github.com/gauntlet-dev/shadowjson/dialect) normalizes
// JSON-with-comments/trailing-commas input down to the strict grammar this
// package parses. Package batch (github.com/gauntlet-dev/shadowjson/batch)
// parses many independent documents concurrently, one Parser per worker.
package shadowjson
