package webmodule

import (
	"fmt"
	"path"
	"strings"
)

// Kind classifies a resource. The zero value means "infer from the path".
type Kind int

const (
	KindAuto      Kind = iota
	KindCSS
	KindJS
	KindModule    // ES module script
	KindImported  // ES module exposed through the import map, never emitted directly
	KindImportMap // synthesized import map document
	KindAncillary // anything else: fonts, images, source maps
)

var kindNames = map[Kind]string{
	KindAuto:      "auto",
	KindCSS:       "css",
	KindJS:        "js",
	KindModule:    "module",
	KindImported:  "imported",
	KindImportMap: "importmap",
	KindAncillary: "ancillary",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a kind name as used in site manifests.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return KindAuto, fmt.Errorf("unknown resource kind %q", s)
}

// KindForPath infers a kind from a file extension.
func KindForPath(p string) Kind {
	switch strings.ToLower(path.Ext(p)) {
	case ".js":
		return KindJS
	case ".css":
		return KindCSS
	default:
		return KindAncillary
	}
}

// ScriptType returns the value of a script tag's type attribute.
func (k Kind) ScriptType() (string, bool) {
	switch k {
	case KindJS:
		return "text/javascript", true
	case KindModule:
		return "module", true
	case KindImportMap:
		return "importmap", true
	default:
		return "", false
	}
}

// Placement is the page region a resource is emitted into. The zero value
// means "default for the kind".
type Placement int

const (
	PlacementAuto Placement = iota
	Head
	BodyHead
	BodyTail
)

// Placements lists every concrete placement in page order.
var Placements = []Placement{Head, BodyHead, BodyTail}

var placementNames = map[Placement]string{
	PlacementAuto: "auto",
	Head:          "head",
	BodyHead:      "bodyhead",
	BodyTail:      "bodytail",
}

func (p Placement) String() string {
	if s, ok := placementNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Placement(%d)", int(p))
}

// ParsePlacement parses a placement name as used in site manifests.
func ParsePlacement(s string) (Placement, error) {
	for p, name := range placementNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return PlacementAuto, fmt.Errorf("unknown placement %q", s)
}

// DefaultPlacement is Head for stylesheets and BodyTail for everything else.
func DefaultPlacement(k Kind) Placement {
	if k == KindCSS {
		return Head
	}
	return BodyTail
}

// Mount is how a module is exposed over HTTP. The zero value means "infer
// from the URI".
type Mount int

const (
	MountAuto      Mount = iota
	MountFile      // one URI serving one resource
	MountDirectory // a URI prefix serving resources by sub-path
	MountContent   // no URI, resources are inline only
	MountURL       // resources live on another host, nothing is mounted
)

var mountNames = map[Mount]string{
	MountAuto:      "auto",
	MountFile:      "file",
	MountDirectory: "directory",
	MountContent:   "content",
	MountURL:       "url",
}

func (m Mount) String() string {
	if s, ok := mountNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mount(%d)", int(m))
}

// ParseMount parses a mount name as used in site manifests.
func ParseMount(s string) (Mount, error) {
	for m, name := range mountNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return MountAuto, fmt.Errorf("unknown mount %q", s)
}
