// Package io provides JSON import and export for module graphs.
//
// # JSON Format
//
// The format has two top-level arrays:
//
//	{
//	  "nodes": [
//	    {"id": "app", "seq": 3, "meta": {"mount": "file", "uri": "/app.js"}},
//	    {"id": "bootstrap", "seq": 2},
//	    {"id": "jquery", "seq": 1}
//	  ],
//	  "edges": [
//	    {"from": "app", "to": "bootstrap"},
//	    {"from": "bootstrap", "to": "jquery"}
//	  ]
//	}
//
// Each node needs an "id", the module name. "seq" is the registration
// sequence the resolver uses to break ties and "meta" carries whatever the
// resolver recorded about the module (mount, URI, resource count).
// Edges run from a module to the module it requires.
//
// # Import
//
// Use [ImportJSON] to read a graph from a file path, or [ReadJSON] to read
// from any io.Reader.
//
// # Export
//
// Use [ExportJSON] to write a graph to a file, or [WriteJSON] to write to any
// io.Writer. Sequence numbers and metadata are preserved, so an exported
// graph resolves to the same order when read back.
package io
