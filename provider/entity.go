package provider

import "github.com/teranos/kalc/formula"

// EntityID derives the external identifier used in provider lookups and
// dedup keys: the "id" metadata entry when the worksheet attached one,
// otherwise the entity's display text (e.g. a ticker symbol shown in the
// cell).
func EntityID(e *formula.Entity) string {
	if md := e.Metadata(); md != nil {
		if id, ok := md["id"].(string); ok && id != "" {
			return id
		}
	}
	return e.Display().Format()
}
