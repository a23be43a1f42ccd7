package bot

import (
	"context"
	"fmt"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/offers"
	"github.com/ashureev/tradebot/internal/peer"
	"github.com/ashureev/tradebot/internal/trade"
	"github.com/ashureev/tradebot/internal/transport"
)

const (
	kindStart           transport.Kind = "bot_start"
	kindCommand         transport.Kind = "bot_command"
	kindInventoryLoaded transport.Kind = "bot_inventory_loaded"
)

// startEvent asks the loop to (re)connect.
type startEvent struct{}

type commandResult struct {
	output string
	err    error
}

// commandEvent carries an operator command and the channel its result goes to.
type commandEvent struct {
	command string
	reply   chan<- commandResult
}

type inventoryLoadedEvent struct {
	inventory *domain.Inventory
	err       error
}

func (startEvent) Kind() transport.Kind           { return kindStart }
func (commandEvent) Kind() transport.Kind         { return kindCommand }
func (inventoryLoadedEvent) Kind() transport.Kind { return kindInventoryLoaded }

type route func(ctx context.Context, ev transport.Event) error

// on adapts a typed handler to a route.
func on[E transport.Event](fn func(context.Context, E) error) route {
	return func(ctx context.Context, ev transport.Event) error {
		e, ok := ev.(E)
		if !ok {
			return fmt.Errorf("route %s: unexpected event %T", ev.Kind(), ev)
		}
		return fn(ctx, e)
	}
}

func (b *Bot) routeTable() map[transport.Kind]route {
	return map[transport.Kind]route{
		transport.KindConnected:           on(b.onConnected),
		transport.KindDisconnected:        on(b.onDisconnected),
		transport.KindLoggedOn:            on(b.onLoggedOn),
		transport.KindLoggedOff:           on(b.onLoggedOff),
		transport.KindLoginKey:            on(b.onLoginKey),
		transport.KindWebNonce:            on(b.onWebNonce),
		transport.KindMachineAuth:         on(b.onMachineAuth),
		transport.KindFriendsList:         on(b.onFriendsList),
		transport.KindFriendMsg:           on(b.onFriendMsg),
		transport.KindChatMsg:             on(b.onChatMsg),
		transport.KindTradeSessionStart:   on(b.onTradeSessionStart),
		transport.KindTradeProposed:       on(b.onTradeProposed),
		transport.KindTradeResult:         on(b.onTradeResult),
		transport.KindNotification:        on(b.onNotification),
		transport.KindCommentNotification: on(b.onCommentNotification),

		kindStart:           on(b.onStart),
		kindCommand:         on(b.onCommand),
		kindInventoryLoaded: on(b.onInventoryLoaded),
		trade.KindActivity:  on(b.onTradeActivity),
		trade.KindTimeout:   on(b.onTradeTimeout),
		offers.KindNewOffer: on(b.onNewOffer),
	}
}

// Dispatch routes one event and publishes a fresh Status. It must only be called
// from the loop goroutine.
func (b *Bot) Dispatch(ctx context.Context, ev transport.Event) error {
	defer b.publishStatus()
	r, ok := b.routes[ev.Kind()]
	if !ok {
		b.logger.Debug("No route for event", "kind", ev.Kind())
		return nil
	}
	return r(ctx, ev)
}

func (b *Bot) onStart(ctx context.Context, _ startEvent) error {
	b.setState(StateConnecting)
	return b.client.Connect(ctx)
}

func (b *Bot) onCommand(ctx context.Context, ev commandEvent) error {
	out, err := b.runCommand(ctx, ev.command)
	if err != nil {
		b.logger.Error("Bot command failed", "command", ev.command, "error", err)
	}
	ev.reply <- commandResult{output: out, err: err}
	return nil
}

func (b *Bot) runCommand(ctx context.Context, command string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %q panicked: %v", command, r)
		}
	}()
	h, ok := b.registry.GetOrCreate(b.self).(peer.CommandHandler)
	if !ok {
		return "", ErrNoCommandHandler
	}
	return h.OnBotCommand(ctx, command)
}

func (b *Bot) onInventoryLoaded(_ context.Context, ev inventoryLoadedEvent) error {
	if ev.err != nil {
		b.logger.Warn("Could not load own inventories", "error", ev.err)
		return nil
	}
	b.myInventory = ev.inventory
	b.logger.Info("Own inventories loaded", "items", len(ev.inventory.Items))
	return nil
}
