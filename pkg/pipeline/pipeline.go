// Package pipeline runs the asset pipeline that turns the modules a page
// required into HTML tags, and the graph pipeline behind the CLI's graph
// tooling.
//
// # Asset pipeline
//
// Three stages run for every page render:
//
//  1. Resolve: expand the requires closure of the globals and the required
//     modules and put it in dependency order ([resolve.Resolver])
//  2. Import map: add the import map module when any module exposes a bare
//     ES module specifier ([importmap.Synthesize])
//  3. Emit: render the head, body-head and body-tail fragments ([emit.All])
//
// Usage:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Page:     "index.html",
//	    Globals:  globals,
//	    Required: web.Required(ctx),
//	    Seq:      registry.Snapshot(),
//	})
//	head := result.Assets.Head
//
// # Graph pipeline
//
// [Runner.Graph] builds the requires graph of a set of modules and renders
// it as JSON, DOT or SVG. SVG output is cached by the hash of its DOT
// source.
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/jenny/pkg/emit"
	"github.com/matzehuels/jenny/pkg/resolve"
	"github.com/matzehuels/jenny/pkg/webmodule"
)

// Format constants for graph outputs.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported graph output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// Options configures one asset pipeline run.
type Options struct {
	// Page names the page being rendered, for logs and metrics.
	Page string

	// Globals are required by every page.
	Globals []*webmodule.Module

	// Required are the modules this render asked for, in require order.
	Required []*webmodule.Module

	// Seq orders modules without a dependency between them, usually a
	// registry snapshot. Nil orders them by discovery.
	Seq resolve.Sequencer

	Logger *log.Logger
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Modules is the resolved module list, import map module included.
	Modules []*webmodule.Module

	// Assets holds the rendered tags per page region.
	Assets emit.Assets

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ModuleCount int
	ImportMap   bool
	ResolveTime time.Duration
	EmitTime    time.Duration
}

// GraphOptions configures [Runner.Graph].
type GraphOptions struct {
	// Formats to produce; defaults to DOT.
	Formats []string

	// Reduce removes edges implied by longer requires paths before
	// rendering.
	Reduce bool

	// Detailed includes sequence numbers and metadata in node labels.
	Detailed bool

	// Refresh bypasses the artifact cache.
	Refresh bool

	Logger *log.Logger
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: json, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// SetDefaults fills in defaults for graph rendering and validates formats.
func (o *GraphOptions) SetDefaults() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatDOT}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return ValidateFormats(o.Formats)
}
