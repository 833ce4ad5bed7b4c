package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trenchy69/FLashloanbotonETH/dex"
)

// PathVariant selects one admissible route from the fixed menu. Variants are
// configuration, not caller-supplied arbitrary routes.
type PathVariant uint8

// The reference menu: two secondary assets, each tradable in both venue
// orderings.
const (
	PathSecondaryAForward PathVariant = iota // base -> A on venue 1, A -> base on venue 2
	PathSecondaryAReverse                    // base -> A on venue 2, A -> base on venue 1
	PathSecondaryBForward                    // base -> B on venue 1, B -> base on venue 2
	PathSecondaryBReverse                    // base -> B on venue 2, B -> base on venue 1

	NumPathVariants = 4
)

func (v PathVariant) String() string {
	switch v {
	case PathSecondaryAForward:
		return "secondary-a-forward"
	case PathSecondaryAReverse:
		return "secondary-a-reverse"
	case PathSecondaryBForward:
		return "secondary-b-forward"
	case PathSecondaryBReverse:
		return "secondary-b-reverse"
	default:
		return fmt.Sprintf("path-variant-%d", uint8(v))
	}
}

// Hop is one single-pair trade within a route.
type Hop struct {
	AssetIn  common.Address
	AssetOut common.Address
	Venue    dex.Venue
}

// Route is an explicit ordered hop list beginning and ending at the same
// base asset.
type Route struct {
	Variant PathVariant
	Hops    []Hop
}

// BaseAsset returns the asset the route starts and ends at.
func (r Route) BaseAsset() common.Address {
	return r.Hops[0].AssetIn
}

// QuoteAsset returns the counter asset of the route's first hop, which
// determines the flash pool pair.
func (r Route) QuoteAsset() common.Address {
	return r.Hops[0].AssetOut
}

// Validate checks that the route is non-empty, chains asset to asset, and
// closes back on its base asset.
func (r Route) Validate() error {
	if len(r.Hops) == 0 {
		return fmt.Errorf("route %s has no hops", r.Variant)
	}
	for i, hop := range r.Hops {
		if hop.Venue == nil {
			return fmt.Errorf("route %s hop %d has no venue", r.Variant, i)
		}
		if hop.AssetIn == hop.AssetOut {
			return fmt.Errorf("route %s hop %d trades an asset against itself", r.Variant, i)
		}
		if i > 0 && r.Hops[i-1].AssetOut != hop.AssetIn {
			return fmt.Errorf("route %s breaks at hop %d: %s does not chain to %s",
				r.Variant, i, r.Hops[i-1].AssetOut.Hex(), hop.AssetIn.Hex())
		}
	}
	if last := r.Hops[len(r.Hops)-1].AssetOut; last != r.BaseAsset() {
		return fmt.Errorf("route %s does not close on its base asset", r.Variant)
	}
	return nil
}

// BuildMenu assembles the four-variant route menu over a base asset, two
// secondary assets and two venues.
func BuildMenu(base, secondaryA, secondaryB common.Address, venue1, venue2 dex.Venue) (map[PathVariant]Route, error) {
	menu := map[PathVariant]Route{
		PathSecondaryAForward: twoHop(PathSecondaryAForward, base, secondaryA, venue1, venue2),
		PathSecondaryAReverse: twoHop(PathSecondaryAReverse, base, secondaryA, venue2, venue1),
		PathSecondaryBForward: twoHop(PathSecondaryBForward, base, secondaryB, venue1, venue2),
		PathSecondaryBReverse: twoHop(PathSecondaryBReverse, base, secondaryB, venue2, venue1),
	}

	for _, route := range menu {
		if err := route.Validate(); err != nil {
			return nil, err
		}
	}
	return menu, nil
}

func twoHop(variant PathVariant, base, secondary common.Address, out, back dex.Venue) Route {
	return Route{
		Variant: variant,
		Hops: []Hop{
			{AssetIn: base, AssetOut: secondary, Venue: out},
			{AssetIn: secondary, AssetOut: base, Venue: back},
		},
	}
}
