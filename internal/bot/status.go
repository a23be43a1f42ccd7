package bot

import "time"

// TradeSummary describes the live trade in a Status.
type TradeSummary struct {
	ID        string    `json:"id"`
	Partner   string    `json:"partner"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// Status is a read-only snapshot published by the loop after every event.
type Status struct {
	Running      bool          `json:"running"`
	State        string        `json:"state"`
	SteamID      string        `json:"steam_id,omitempty"`
	DisplayName  string        `json:"display_name"`
	CookiesValid bool          `json:"cookies_valid"`
	Handlers     int           `json:"handlers"`
	Trade        *TradeSummary `json:"trade,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Status returns the latest snapshot. Safe from any goroutine.
func (b *Bot) Status() Status {
	if s := b.status.Load(); s != nil {
		return *s
	}
	return Status{State: StateDisconnected.String(), DisplayName: b.cfg.DisplayName}
}

func (b *Bot) publishStatus() {
	s := &Status{
		Running:     b.running.Load(),
		State:       b.state.String(),
		DisplayName: b.cfg.DisplayName,
		Handlers:    b.registry.Len(),
		UpdatedAt:   time.Now(),
	}
	if !b.self.IsZero() {
		s.SteamID = b.self.String()
	}
	if b.cookies != nil {
		s.CookiesValid = b.cookies.Valid()
	}
	if b.trades != nil {
		if t := b.trades.Current(); t != nil {
			s.Trade = &TradeSummary{
				ID:        t.ID,
				Partner:   t.Partner.String(),
				State:     t.State().String(),
				StartedAt: t.CreatedAt,
			}
		}
	}
	b.status.Store(s)
}
