package whatsapp

import (
	"time"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/talkincode/wacapture/internal/domain"
	"github.com/talkincode/wacapture/pkg/common"
)

// GroupNameLookup resolves a group JID to its human-readable subject,
// returning nil when the lookup fails or the subject is unknown.
type GroupNameLookup func(jid types.JID) *string

// Normalize maps one inbound protocol message to the canonical record.
// Self-sent messages and events without a payload are skipped (ok=false).
// The media URL field is intentionally never populated: capture is
// metadata-only, media is not downloaded.
func Normalize(evt *events.Message, lookupGroup GroupNameLookup) (*domain.Message, bool) {
	if evt == nil || evt.Message == nil || evt.Info.IsFromMe {
		return nil, false
	}
	msg := evt.Message

	// First matching payload shape wins; anything unrecognized falls
	// through as a content-less text message.
	var content *string
	msgType := domain.MsgTypeText
	switch {
	case msg.GetConversation() != "":
		v := msg.GetConversation()
		content = &v
	case msg.GetExtendedTextMessage() != nil:
		if v := msg.GetExtendedTextMessage().GetText(); v != "" {
			content = &v
		}
	case msg.GetImageMessage() != nil:
		msgType = domain.MsgTypeImage
		if v := msg.GetImageMessage().GetCaption(); v != "" {
			content = &v
		}
	case msg.GetVideoMessage() != nil:
		msgType = domain.MsgTypeVideo
		if v := msg.GetVideoMessage().GetCaption(); v != "" {
			content = &v
		}
	case msg.GetDocumentMessage() != nil:
		msgType = domain.MsgTypeDocument
		if v := msg.GetDocumentMessage().GetFileName(); v != "" {
			content = &v
		}
	}

	isGroup := evt.Info.IsGroup || evt.Info.Chat.Server == types.GroupServer

	// Group messages carry the participant as sender; for direct chats the
	// chat identifier is the sender itself.
	sender := evt.Info.Chat
	if isGroup {
		sender = evt.Info.Sender
	}
	senderNumber := common.NormalizeNumber(sender.User)

	var senderName *string
	if evt.Info.PushName != "" {
		name := evt.Info.PushName
		senderName = &name
	}

	var groupID, groupName *string
	if isGroup {
		gid := evt.Info.Chat.String()
		groupID = &gid
		if lookupGroup != nil {
			groupName = lookupGroup(evt.Info.Chat)
		}
	}

	ts := evt.Info.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	messageID := string(evt.Info.ID)
	if messageID == "" {
		messageID = common.FallbackMessageID()
	}

	return &domain.Message{
		MessageID:    messageID,
		Content:      content,
		SenderNumber: senderNumber,
		SenderName:   senderName,
		GroupName:    groupName,
		GroupID:      groupID,
		IsGroup:      isGroup,
		MessageType:  msgType,
		Timestamp:    ts,
	}, true
}
