package handlers

import (
	"fmt"
	"sort"

	"github.com/ashureev/tradebot/internal/bot"
	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/peer"
)

var _ Controller = (*bot.Bot)(nil)

var classes = map[string]func(Controller, domain.SteamID) *Default{
	"default":    NewDefault,
	"admin_only": NewAdminOnly,
}

// Factory returns the handler factory registered under class, the bot file's
// bot_control_class.
func Factory(class string) (bot.HandlerFactory, error) {
	build, ok := classes[class]
	if !ok {
		return nil, fmt.Errorf("unknown bot control class %q (have %v)", class, Classes())
	}
	return func(b *bot.Bot, id domain.SteamID) peer.Handler {
		return build(b, id)
	}, nil
}

// Classes lists the registered class names.
func Classes() []string {
	out := make([]string, 0, len(classes))
	for name := range classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
