package workers

import (
	"context"

	"github.com/dotaedge/esport-signal/internal/models"
)

// MarketSource is the quote-provider side of the scanner.
type MarketSource interface {
	FetchDota2Markets(ctx context.Context) ([]models.PolymarketMarket, error)
}

// LiveSource is the live-match provider side of the fetcher.
type LiveSource interface {
	FetchLiveMatches(ctx context.Context) ([]models.LiveMatchState, error)
}

// SignalSink persists processed signals.
type SignalSink interface {
	InsertSignal(sig *models.Signal) (int64, error)
}

// SignalPublisher pushes stored signals to live consumers. Optional.
type SignalPublisher interface {
	PublishSignal(sig models.Signal)
}

// SignalNotifier sends out-of-band alerts for notable signals. Optional.
type SignalNotifier interface {
	SignalAlert(ctx context.Context, sig models.Signal) error
}
