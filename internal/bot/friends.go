package bot

import (
	"context"
	"errors"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/peer"
	"github.com/ashureev/tradebot/internal/transport"
)

func (b *Bot) onFriendsList(ctx context.Context, ev transport.FriendsListEvent) error {
	var errs []error
	for _, f := range ev.Friends {
		if f.SteamID.IsClan() {
			if f.Relationship == domain.RelationshipRequestRecipient {
				errs = append(errs, b.answerGroupInvite(ctx, f.SteamID))
			}
			continue
		}

		b.ensureFriends()
		switch f.Relationship {
		case domain.RelationshipNone:
			delete(b.friends, f.SteamID)
			if h, ok := b.registry.GetOrCreate(f.SteamID).(peer.FriendHandler); ok {
				h.OnFriendRemove(ctx)
			}
			b.registry.Remove(f.SteamID)
		case domain.RelationshipRequestRecipient:
			errs = append(errs, b.answerFriendRequest(ctx, f.SteamID))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) answerGroupInvite(ctx context.Context, group domain.SteamID) error {
	accept := false
	if h, ok := b.registry.GetOrCreate(group).(peer.FriendHandler); ok {
		accept = h.OnGroupAdd(ctx)
	}
	return b.client.Send(ctx, transport.GroupInviteAction{GroupID: group, Accept: accept})
}

func (b *Bot) answerFriendRequest(ctx context.Context, id domain.SteamID) error {
	h, ok := b.registry.GetOrCreate(id).(peer.FriendHandler)
	if !ok || !h.OnFriendAdd(ctx) {
		b.registry.Remove(id)
		return b.client.Send(ctx, transport.RemoveFriend{SteamID: id})
	}

	if _, dup := b.friends[id]; dup {
		b.logger.Error("Friend was added who was already in friends list", "steam_id", id)
	} else {
		b.friends[id] = struct{}{}
	}
	return b.client.Send(ctx, transport.AddFriend{SteamID: id})
}

func (b *Bot) onFriendMsg(ctx context.Context, ev transport.FriendMsgEvent) error {
	if ev.EntryType != domain.ChatEntryMessage {
		return nil
	}
	b.logger.Info("Chat message", "from", ev.Sender, "message", ev.Message)
	if h, ok := b.registry.GetOrCreate(ev.Sender).(peer.MessageHandler); ok {
		h.OnMessage(ctx, ev.Message, ev.EntryType)
	}
	return nil
}

func (b *Bot) onChatMsg(ctx context.Context, ev transport.ChatMsgEvent) error {
	if h, ok := b.registry.GetOrCreate(ev.ChatterID).(peer.MessageHandler); ok {
		h.OnChatRoomMessage(ctx, ev.ChatRoomID, ev.ChatterID, ev.Message)
	}
	return nil
}
