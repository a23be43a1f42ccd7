package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/offers"
	"github.com/ashureev/tradebot/internal/peer"
	"github.com/ashureev/tradebot/internal/transport"
	"github.com/cenkalti/backoff/v4"
)

var errWebAuthRejected = errors.New("web authentication rejected")

func (b *Bot) onConnected(ctx context.Context, ev transport.ConnectedEvent) error {
	b.logger.Debug("Connection callback", "result", ev.Result)
	if ev.Result != domain.ResultOK {
		b.logger.Error("Failed to connect to the platform, trying again...", "result", ev.Result)
		b.setState(StateConnecting)
		return b.client.Connect(ctx)
	}
	b.setState(StateLoggingOn)
	return b.logOn(ctx)
}

// logOn submits credentials, with the hash of the stored machine-auth secret if any.
func (b *Bot) logOn(ctx context.Context) error {
	details := transport.LogOn{
		Username: b.cfg.Username,
		Password: b.cfg.Password,
		AuthCode: b.authCode,
	}
	sentry, err := b.store.GetSentry(ctx, b.cfg.Username)
	switch {
	case err != nil:
		b.logger.Warn("Could not read machine auth secret", "error", err)
	case sentry != nil && len(sentry.Data) > 0:
		details.SentryHash = domain.SentryHash(sentry.Data)
	}
	return b.client.Send(ctx, details)
}

func (b *Bot) onLoggedOn(ctx context.Context, ev transport.LoggedOnEvent) error {
	b.logger.Debug("Logged on callback", "result", ev.Result)

	switch ev.Result {
	case domain.ResultOK:
		b.self = ev.SteamID
		b.nonce = ev.WebAPIUserNonce
		b.trades.SetSelf(ev.SteamID)
		b.setState(StateAuthenticated)
		return nil
	case domain.ResultAccountLogonDenied:
		b.logger.Info("This account is SteamGuard enabled. Enter the code via the `auth' command.")
		return b.awaitAuthCode(ctx, false)
	case domain.ResultInvalidLoginAuthCode:
		b.logger.Info("The given SteamGuard code was invalid. Try again using the `auth' command.")
		return b.awaitAuthCode(ctx, true)
	default:
		b.logger.Error("Login error", "result", ev.Result)
		return nil
	}
}

// awaitAuthCode blocks the loop until the credential provider yields a code, then
// re-submits the logon.
func (b *Bot) awaitAuthCode(ctx context.Context, retry bool) error {
	b.setState(StateSteamGuardPending)
	code, err := b.creds.AuthCode(ctx, b.cfg.Username, retry)
	if err != nil {
		return fmt.Errorf("obtain auth code: %w", err)
	}
	b.authCode = code
	b.setState(StateLoggingOn)
	return b.logOn(ctx)
}

func (b *Bot) onLoginKey(ctx context.Context, ev transport.LoginKeyEvent) error {
	if b.state != StateAuthenticated && b.state != StateOnline {
		b.logger.Warn("Ignoring login key outside of a logon", "state", b.state)
		return nil
	}
	b.uniqueID = ev.UniqueID
	if err := b.webLogOn(ctx); err != nil {
		return err
	}
	return b.goOnline(ctx)
}

func (b *Bot) onWebNonce(ctx context.Context, ev transport.WebNonceEvent) error {
	b.logger.Debug("Received new web nonce")
	if ev.Result != domain.ResultOK {
		b.logger.Error("Web nonce error", "result", ev.Result)
		return nil
	}
	if b.state == StateOnline && b.cookies.Valid() && b.cookies.Nonce() == ev.Nonce {
		b.logger.Debug("Web session already uses this nonce")
		return nil
	}
	b.nonce = ev.Nonce
	if b.state != StateAuthenticated && b.state != StateOnline {
		return nil
	}
	return b.webLogOn(ctx)
}

// webLogOn establishes the web session. It retries forever at a fixed delay and
// only gives up when ctx is done.
func (b *Bot) webLogOn(ctx context.Context) error {
	b.setState(StateWebAuthenticating)

	policy := backoff.WithContext(backoff.NewConstantBackOff(b.cfg.WebAuthRetryDelay), ctx)
	op := func() error {
		ok, err := b.web.Authenticate(ctx, b.uniqueID, b.nonce)
		if err != nil {
			return err
		}
		if !ok {
			return errWebAuthRejected
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		b.logger.Warn("Authentication failed, retrying", "in", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("web authentication: %w", err)
	}

	b.cookies.MarkValid(b.nonce)
	b.logger.Info("User Authenticated!")
	b.setState(StateOnline)

	// offers received while offline
	b.refreshOffers(ctx)
	return nil
}

func (b *Bot) goOnline(ctx context.Context) error {
	b.loadMyInventoriesAsync(ctx)

	if err := b.client.Send(ctx, transport.SetPersonaName{Name: b.cfg.DisplayNamePrefix + b.cfg.DisplayName}); err != nil {
		return err
	}
	if err := b.client.Send(ctx, transport.SetPersonaState{State: domain.PersonaOnline}); err != nil {
		return err
	}
	b.logger.Info("Bot logged in completely")

	if b.cfg.OfferPollInterval > 0 && !b.offerPolling {
		pollCtx, cancel := context.WithCancel(ctx)
		b.stopOffers = cancel
		b.offerPolling = true
		b.offers.Run(pollCtx, b.cfg.OfferPollInterval, func(ev offers.NewOfferEvent) bool { return b.inject(ev) })
	}

	if h, ok := b.registry.GetOrCreate(b.self).(peer.LifecycleHandler); ok {
		h.OnLoginCompleted(ctx)
	}
	return nil
}

func (b *Bot) loadMyInventoriesAsync(ctx context.Context) {
	self := b.self
	go func() {
		inv, err := b.web.FetchInventory(ctx, self, b.cfg.Inventories)
		b.inject(inventoryLoadedEvent{inventory: inv, err: err})
	}()
}

func (b *Bot) onMachineAuth(ctx context.Context, ev transport.MachineAuthEvent) error {
	sentry := domain.NewSentry(b.cfg.Username, ev.Data)
	result := domain.ResultOK
	if err := b.store.SaveSentry(ctx, sentry); err != nil {
		b.logger.Error("Could not persist machine auth secret", "error", err)
		result = domain.ResultFail
	}

	return b.client.Send(ctx, transport.MachineAuthResponse{
		JobID:           ev.JobID,
		FileName:        ev.FileName,
		BytesWritten:    ev.BytesToWrite,
		FileSize:        ev.BytesToWrite,
		Offset:          ev.Offset,
		SentryHash:      sentry.Hash,
		OneTimePassword: ev.OneTimePassword,
		Result:          result,
	})
}

func (b *Bot) onLoggedOff(ctx context.Context, ev transport.LoggedOffEvent) error {
	b.logger.Warn("Logged off", "reason", ev.Result)
	b.trades.CloseTrade()
	b.cookies.Invalidate()
	b.setState(StateDisconnected)
	// The platform normally drops the connection after a logoff; make sure of it
	// and dial again ourselves.
	err := b.client.Disconnect()
	if ctx.Err() == nil {
		b.post(startEvent{})
	}
	return err
}

func (b *Bot) onDisconnected(ctx context.Context, ev transport.DisconnectedEvent) error {
	if ev.UserInitiated {
		// Whoever called Disconnect already tore the session down. The event may
		// also be left over from a previous run.
		b.logger.Debug("Connection closed locally")
		return nil
	}
	if b.state >= StateAuthenticated {
		b.logger.Warn("Disconnected from the platform!")
	}
	b.trades.CloseTrade()
	b.cookies.Invalidate()
	b.setState(StateDisconnected)

	if ctx.Err() == nil {
		b.post(startEvent{})
	}
	return nil
}
