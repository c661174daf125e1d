package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BlockPrice assigns one player a price for one block. Prices are created
// with a default value the first time a block's sheet is requested and are
// never auto-overwritten afterwards.
type BlockPrice struct {
	BlockNumber int
	PlayerID    string
	Price       decimal.Decimal
}

// FallbackPrice is the price used for every player when no sheet has been
// published for a block yet.
var FallbackPrice = decimal.RequireFromString("7.5")

func (p BlockPrice) Validate() error {
	if p.BlockNumber <= 0 {
		return fmt.Errorf("block number must be greater than zero")
	}
	if p.PlayerID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative")
	}

	return nil
}

// DefaultSheet builds a uniform price sheet for the given players.
func DefaultSheet(blockNumber int, playerIDs []string, price decimal.Decimal) []BlockPrice {
	out := make([]BlockPrice, 0, len(playerIDs))
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, BlockPrice{BlockNumber: blockNumber, PlayerID: id, Price: price})
	}
	return out
}

// PriceMap indexes a sheet by player id.
func PriceMap(prices []BlockPrice) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(prices))
	for _, p := range prices {
		out[p.PlayerID] = p.Price
	}
	return out
}
