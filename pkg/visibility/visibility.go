package visibility

import (
	"strings"

	"github.com/angelmondragon/dealercrm-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dealercrm-backend/pkg/errors"
)

// EnsureDealerVisible enforces the tenant gate shared by intake, reporting and
// actor resolution: a missing or deactivated dealer is indistinguishable from
// an unknown one.
func EnsureDealerVisible(dealer *models.Dealer) error {
	if dealer == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	if !dealer.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	return nil
}

// NormalizeSlug lowercases and trims a dealer slug from a URL path.
func NormalizeSlug(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ValidSlug reports whether value is a usable dealer slug: lowercase
// letters, digits and single hyphens, 2 to 64 characters.
func ValidSlug(value string) bool {
	if len(value) < 2 || len(value) > 64 {
		return false
	}
	if strings.HasPrefix(value, "-") || strings.HasSuffix(value, "-") || strings.Contains(value, "--") {
		return false
	}
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
