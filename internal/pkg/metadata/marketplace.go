package metadata

// Marketplace identifies the target platform an export is prepared for.
// Each platform has its own title length limit and tag count convention.
type Marketplace string

const (
	MarketplaceEtsy       Marketplace = "etsy"
	MarketplaceAdobeStock Marketplace = "adobestock"
)

// TitleLimit returns the maximum title length accepted by the marketplace.
func (m Marketplace) TitleLimit() int {
	switch m {
	case MarketplaceAdobeStock:
		return 200
	default:
		return 140
	}
}

// TagLimit returns the maximum number of tags the marketplace accepts per
// listing. Only the spreadsheet enforces this cap; the binary metadata may
// carry more tags than the spreadsheet does.
func (m Marketplace) TagLimit() int {
	switch m {
	case MarketplaceAdobeStock:
		return 49
	default:
		return 13
	}
}

// Valid reports whether m is a known marketplace identifier.
func (m Marketplace) Valid() bool {
	switch m {
	case MarketplaceEtsy, MarketplaceAdobeStock:
		return true
	}
	return false
}
