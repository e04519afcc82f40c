// Package integrations provides HTTP clients for the upstream services used
// to build CDN-mounted web modules.
//
// # Overview
//
// The [npm] subpackage fetches package metadata from the npm registry and
// file listings from the jsDelivr data API. The shared [Client] handles:
//   - HTTP requests with retry on transient failures
//   - Response caching through any [cache.Cache] backend
//   - Collapsing concurrent requests for the same key
//   - Reporting requests and cache activity to the observability hooks
//
// # Client Pattern
//
//	c, _ := cache.NewFileCache(dir)
//	client := npm.NewClient(c, 24*time.Hour)
//	pkg, err := client.FetchPackage(ctx, "bootstrap", "", false) // false = use cache
//
// [npm]: github.com/matzehuels/jenny/pkg/integrations/npm
// [cache.Cache]: github.com/matzehuels/jenny/pkg/cache.Cache
package integrations
