package shopclient

import (
	"time"

	"github.com/shopuda/shopclient/cache"
	"github.com/shopuda/shopclient/dto"
)

type ClientState struct {
	BaseURL        string                        `json:"base_url"`
	RequestTimeout time.Duration                 `json:"request_timeout"`
	UserAgent      string                        `json:"user_agent"`
	ExtraHeaders   dto.ExtraHeaders              `json:"extra_headers,omitempty"`
	Authenticated  bool                          `json:"authenticated"`
	User           *dto.User                     `json:"user,omitempty"`
	CacheStatus    map[string]cache.Notification `json:"cache_status,omitempty"`
}

func (s *StoreSvc) State() *ClientState {
	state := &ClientState{
		BaseURL:        s.cfg.BaseURL,
		RequestTimeout: s.cfg.RequestTimeout,
		UserAgent:      s.cfg.UserAgent,
		ExtraHeaders:   s.cfg.ExtraHeaders,
		CacheStatus:    s.cache.Statuses(),
	}
	if pair, ok := s.creds.Get(); ok {
		state.Authenticated = true
		state.User = pair.Subject
	}
	return state
}
