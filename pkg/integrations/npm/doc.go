// Package npm provides an HTTP client for the npm registry and the jsDelivr
// CDN.
//
// # Overview
//
// CDN-mounted web modules need two things before they can be built: the
// package.json of the chosen version (for its main, module, style and type
// entries) and the list of files the version ships (to pick minified
// variants). [Client.FetchPackage] reads the first from
// https://registry.npmjs.org and [Client.FetchFiles] reads the second from
// the jsDelivr data API.
//
// # Usage
//
//	client := npm.NewClient(c, 24*time.Hour)
//	pkg, err := client.FetchPackage(ctx, "bootstrap", "", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	files, err := client.FetchFiles(ctx, pkg.Name, pkg.Version, false)
//	base := client.CDNBase(pkg.Name, pkg.Version) // https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/
//
// # Version Selection
//
// An empty version selects dist-tags.latest. Any other dist-tag name is
// resolved the same way; everything else must be an exact published
// version.
//
// # Caching
//
// Responses are cached through the shared integrations client. Pass
// refresh=true to bypass the cache.
package npm
