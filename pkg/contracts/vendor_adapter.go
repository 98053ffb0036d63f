package contracts

import (
	"context"

	"github.com/skyventures840/skybet/pkg/models"
)

// OddsProvider defines the interface for fetching odds from an external vendor.
// Implementations only perform the network call: no caching, no persistence.
type OddsProvider interface {
	// ListSports returns the sports the vendor currently covers
	ListSports(ctx context.Context) ([]models.Sport, error)

	// ListMarkets returns market descriptors for a sport.
	// A vendor that has no market metadata for the sport returns an empty list.
	ListMarkets(ctx context.Context, sport string) ([]models.MarketDescriptor, error)

	// GetOdds returns match payloads for one sport/market/bookmaker selection
	GetOdds(ctx context.Context, query *models.OddsQuery) ([]models.Match, error)

	// GetScores returns live and recently completed scores
	GetScores(ctx context.Context, sport string, daysFrom int) ([]models.Score, error)

	// GetRateLimits returns current quota information
	GetRateLimits() *models.RateLimits
}

// ProviderFactory returns an OddsProvider authenticated with apiKey
type ProviderFactory func(apiKey string) OddsProvider
