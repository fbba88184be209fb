package shopclient

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/shopuda/shopclient/config"
)

var (
	service     *StoreSvc
	serviceOnce sync.Once
)

// ProvideStoreSvc returns the process-wide store client, constructing it on
// first call. Call Hydrate before using it.
func ProvideStoreSvc(cfg *config.SvcConfig) *StoreSvc {
	serviceOnce.Do(func() {
		service = NewStoreSvc(cfg)
		service.log.Debug().Msg("store service started")
	})
	return service
}

// NewStoreSvc builds an independent client, mainly for tests and embedders
// that manage their own lifecycle. A nil config gets the defaults; Hydrate
// then reports what is missing.
func NewStoreSvc(cfg *config.SvcConfig) *StoreSvc {
	if cfg == nil {
		def := config.DefaultSvcConfig()
		cfg = &def
	}
	return &StoreSvc{
		cfg:          cfg,
		log:          cfg.Logger,
		loginLimiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}
