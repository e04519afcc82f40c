// Package transform provides graph transformations used when exporting the
// module graph.
//
// # Transitive Reduction
//
// [TransitiveReduction] removes redundant edges that can be inferred through
// other paths. If A→B and B→C exist, then A→C is redundant and removed.
// Plugins often list a shared library both directly and through a widget
// module; the reduced graph shows only the structural edges.
//
// # Cycles
//
// [BackEdges] reports the edges that close cycles and [BreakCycles] removes
// them. Resolution itself never breaks cycles, it rejects them; these helpers
// exist so `jenny graph` can still draw a broken manifest and highlight the
// offending edges.
//
// # Depths
//
// [Depths] assigns each module the length of its longest requires chain,
// which the CLI shows next to each module.
package transform
