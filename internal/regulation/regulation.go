// Package regulation supplies the regulatory rule records an audit is run
// against, either from a built-in catalog or from a rule file.
package regulation

import (
	"fmt"
	"sort"

	"github.com/dshills/protoaudit/internal/schema"
)

// DefaultCatalog is used when neither a catalog nor a rule file is given.
const DefaultCatalog = "vaccine"

var catalogs = map[string]func() []schema.Rule{
	"vaccine":  vaccine,
	"gcp-core": gcpCore,
}

// Catalog returns a copy of the built-in rule list for the given name.
func Catalog(name string) ([]schema.Rule, error) {
	if name == "" {
		name = DefaultCatalog
	}
	build, ok := catalogs[name]
	if !ok {
		return nil, fmt.Errorf("unknown catalog %q: valid catalogs are %v", name, CatalogNames())
	}
	return build(), nil
}

// CatalogNames returns the names of the built-in catalogs in sorted order.
func CatalogNames() []string {
	names := make([]string, 0, len(catalogs))
	for n := range catalogs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
