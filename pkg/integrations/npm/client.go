package npm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/jenny/pkg/cache"
	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/integrations"
)

// Default upstream endpoints.
const (
	DefaultRegistryURL = "https://registry.npmjs.org"
	DefaultCDNURL      = "https://cdn.jsdelivr.net/npm"
	DefaultDataURL     = "https://data.jsdelivr.com/v1/packages/npm"
)

// PackageInfo is the subset of a published package.json needed to build a
// web module.
type PackageInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description,omitempty"`
	License      string   `json:"license,omitempty"`
	Repository   string   `json:"repository,omitempty"`
	HomePage     string   `json:"homepage,omitempty"`
	Main         string   `json:"main,omitempty"`
	Module       string   `json:"module,omitempty"`
	Style        string   `json:"style,omitempty"`
	Type         string   `json:"type,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Client fetches package metadata from the npm registry and file listings
// from the jsDelivr data API.
type Client struct {
	*integrations.Client
	keyer       cache.Keyer
	registryURL string
	cdnURL      string
	dataURL     string
}

// Option configures a Client.
type Option func(*Client)

// WithRegistryURL overrides the npm registry endpoint.
func WithRegistryURL(u string) Option {
	return func(c *Client) { c.registryURL = strings.TrimSuffix(u, "/") }
}

// WithCDNURL overrides the CDN base used for module URIs.
func WithCDNURL(u string) Option {
	return func(c *Client) { c.cdnURL = strings.TrimSuffix(u, "/") }
}

// WithDataURL overrides the file listing endpoint.
func WithDataURL(u string) Option {
	return func(c *Client) { c.dataURL = strings.TrimSuffix(u, "/") }
}

// WithKeyer sets the cache key layout.
func WithKeyer(k cache.Keyer) Option {
	return func(c *Client) { c.keyer = k }
}

// NewClient creates a Client caching responses in c for ttl.
func NewClient(c cache.Cache, ttl time.Duration, opts ...Option) *Client {
	client := &Client{
		Client:      integrations.NewClient(c, "npm:", ttl, nil),
		keyer:       cache.NewDefaultKeyer(),
		registryURL: DefaultRegistryURL,
		cdnURL:      DefaultCDNURL,
		dataURL:     DefaultDataURL,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CDNBase returns the directory URI of a published package version on the
// CDN, with a trailing slash.
func (c *Client) CDNBase(name, version string) string {
	return fmt.Sprintf("%s/%s@%s/", c.cdnURL, name, version)
}

// FetchPackage returns metadata for one version of a package. An empty
// version or a dist-tag such as "next" is resolved through dist-tags.
func (c *Client) FetchPackage(ctx context.Context, name, version string, refresh bool) (*PackageInfo, error) {
	name = strings.TrimSpace(name)
	if err := jerrors.ValidateNpmPackageName(name); err != nil {
		return nil, err
	}

	var info PackageInfo
	key := c.keyer.PackageKey("npm", name, version)
	err := c.Cached(ctx, key, refresh, &info, func() error {
		return c.fetch(ctx, name, version, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchFiles returns the paths of every file in a published package
// version, relative to the package root and sorted.
func (c *Client) FetchFiles(ctx context.Context, name, version string, refresh bool) ([]string, error) {
	var files []string
	key := c.keyer.FilesKey(name, version)
	err := c.Cached(ctx, key, refresh, &files, func() error {
		var data listingResponse
		u := fmt.Sprintf("%s/%s@%s?structure=flat", c.dataURL, name, version)
		if err := c.Get(ctx, u, &data); err != nil {
			return wrapNotFound(err, name+"@"+version)
		}
		files = make([]string, 0, len(data.Files))
		for _, f := range data.Files {
			files = append(files, strings.TrimPrefix(f.Name, "/"))
		}
		slices.Sort(files)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) fetch(ctx context.Context, name, version string, info *PackageInfo) error {
	var data registryResponse
	if err := c.Get(ctx, c.registryURL+"/"+escapeName(name), &data); err != nil {
		return wrapNotFound(err, name)
	}

	resolved := version
	if resolved == "" {
		resolved = data.DistTags["latest"]
	} else if tagged, ok := data.DistTags[resolved]; ok {
		resolved = tagged
	}

	v, ok := data.Versions[resolved]
	if !ok {
		return jerrors.New(jerrors.ErrCodePackageNotFound, "npm package %s has no version %q", name, version)
	}

	*info = PackageInfo{
		Name:         data.Name,
		Version:      resolved,
		Description:  v.Description,
		License:      extractField(v.License, "type"),
		Repository:   integrations.NormalizeRepoURL(extractField(v.Repository, "url")),
		HomePage:     v.HomePage,
		Main:         v.Main,
		Module:       v.Module,
		Style:        v.Style,
		Type:         v.Type,
		Dependencies: slices.Sorted(maps.Keys(v.Dependencies)),
	}
	return nil
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return jerrors.Wrap(jerrors.ErrCodePackageNotFound, err, "npm package %s not found", what)
	}
	return err
}

// escapeName encodes the scope separator the way the registry expects.
func escapeName(name string) string {
	if strings.HasPrefix(name, "@") {
		return strings.Replace(name, "/", "%2f", 1)
	}
	return name
}

func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return s
		}
	}
	return ""
}

type registryResponse struct {
	Name     string                    `json:"name"`
	DistTags map[string]string         `json:"dist-tags"`
	Versions map[string]versionDetails `json:"versions"`
}

type versionDetails struct {
	Description  string            `json:"description"`
	License      any               `json:"license"`
	Repository   any               `json:"repository"`
	HomePage     string            `json:"homepage"`
	Main         string            `json:"main"`
	Module       string            `json:"module"`
	Style        string            `json:"style"`
	Type         string            `json:"type"`
	Dependencies map[string]string `json:"dependencies"`
}

type listingResponse struct {
	Files []struct {
		Name string `json:"name"`
		Hash string `json:"hash"`
		Size int64  `json:"size"`
	} `json:"files"`
}
