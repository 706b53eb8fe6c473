package resolver

import (
	"fmt"
	"strings"

	"github.com/sells-group/scriptura/internal/catalog"
)

// UnavailableReason returns user-facing messaging for an edition whose
// resolution came back empty. It distinguishes an unsupported edition,
// unseeded local data, a missing credential, and transient upstream
// trouble; it never claims a supported edition is unsupported.
func (r *Resolver) UnavailableReason(editionCode string) string {
	edition, ok := catalog.Lookup(editionCode)
	if !ok {
		return fmt.Sprintf("%s is not a supported edition.", strings.ToUpper(strings.TrimSpace(editionCode)))
	}

	src, ok := r.sources[edition.Strategy]
	if !ok {
		return fmt.Sprintf("The %s is not available on this server.", edition.DisplayName)
	}

	switch {
	case edition.Strategy == catalog.StrategyLocal:
		return fmt.Sprintf("The %s has not been loaded into the local library yet.", edition.DisplayName)
	case !src.Available():
		return fmt.Sprintf("The %s is not configured on this server; an API credential is missing.", edition.DisplayName)
	default:
		return fmt.Sprintf("The %s is temporarily unavailable. Please try again shortly.", edition.DisplayName)
	}
}
