// Package catalog holds the model → variant → artifact filename mapping
// and resolves reported device models against it.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"driverdock/internal/capability"
	"driverdock/internal/models"
)

// Catalog is the loaded artifact catalog. It is read-only after Load;
// there is no refresh mechanism — restart the server to pick up changes.
type Catalog struct {
	entries map[string]models.VariantMap
	keys    []string // sorted; fixes containment tie-break order
	source  string   // where the catalog was loaded from
}

// Load fetches the catalog from the first candidate source that yields a
// parseable document. Sources may be local file paths or HTTP(S) URLs,
// tried strictly in order. client is used for URL sources.
func Load(ctx context.Context, client *http.Client, sources []string) (*Catalog, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for _, src := range sources {
		data, err := fetch(ctx, client, src)
		if err != nil {
			lastErr = err
			continue
		}

		var entries map[string]models.VariantMap
		if err := json.Unmarshal(data, &entries); err != nil {
			lastErr = fmt.Errorf("parse catalog %s: %w", src, err)
			continue
		}

		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		return &Catalog{entries: entries, keys: keys, source: src}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no catalog sources configured")
	}
	return nil, fmt.Errorf("load catalog: %w", lastErr)
}

func fetch(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog %s: %w", src, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch catalog %s: HTTP %d", src, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(src)
}

// Size returns the number of catalog entries.
func (c *Catalog) Size() int { return len(c.entries) }

// Source returns the location the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// Resolve maps a reported device model to a catalog entry. The rule
// pipeline runs in order, first match wins:
//
//  1. exact key match
//  2. case-insensitive exact match
//  3. containment in either direction (uppercased) — a long reported
//     string like "ECOSYS M2040dn" matches the short key "M2040", and a
//     short reported code matches a longer descriptive key
//
// Containment candidates are checked in sorted key order, so ties are
// deterministic. A miss returns ok=false; callers must not build a
// download from it.
func (c *Catalog) Resolve(model string) (models.VariantMap, string, bool) {
	if model == "" {
		return models.VariantMap{}, "", false
	}

	if vm, ok := c.entries[model]; ok {
		return vm, model, true
	}

	up := strings.ToUpper(model)
	for _, k := range c.keys {
		if strings.ToUpper(k) == up {
			return c.entries[k], k, true
		}
	}

	for _, k := range c.keys {
		ku := strings.ToUpper(k)
		if strings.Contains(up, ku) || strings.Contains(ku, up) {
			return c.entries[k], k, true
		}
	}

	return models.VariantMap{}, "", false
}

// FileFor returns the artifact filename for a variant within an entry,
// or ok=false when the entry does not carry that variant.
func FileFor(vm models.VariantMap, v capability.Variant) (string, bool) {
	var name string
	switch v {
	case capability.VariantPrinter:
		name = vm.Printer
	case capability.VariantScanner:
		name = vm.Scanner
	case capability.VariantAll:
		name = vm.All
	}
	return name, name != ""
}
