// Package whatsapp parses messaging-relay webhook payloads.
package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cimminelli1982/CRM/internal/interactions"
)

// Deliveries that are acknowledged but deliberately not recorded.
var (
	ErrGroupChat = errors.New("group chat messages are not processed")
	ErrNoPhone   = errors.New("message has no sender phone")
)

type payload struct {
	Message struct {
		ID          string `json:"id"`
		Phone       string `json:"phone"`
		DisplayName string `json:"display_name"`
		Text        string `json:"text"`
		Direction   string `json:"direction"`
		Timestamp   string `json:"timestamp"`
	} `json:"message"`
	Chat struct {
		ID      string `json:"id"`
		IsGroup bool   `json:"is_group"`
	} `json:"chat"`
}

// Message is one parsed one-to-one chat message.
type Message struct {
	UID         string
	Phone       string
	DisplayName string
	Text        string
	Direction   string
	OccurredAt  time.Time
}

// Parse extracts a normalized message from a relay delivery. Group chats
// and messages without a sender phone return ErrGroupChat and ErrNoPhone
// so the handler can acknowledge without recording anything.
func Parse(body []byte) (Message, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Message{}, fmt.Errorf("decode whatsapp payload: %w", err)
	}
	if p.Chat.IsGroup {
		return Message{}, ErrGroupChat
	}
	if strings.TrimSpace(p.Message.Phone) == "" {
		return Message{}, ErrNoPhone
	}

	occurredAt := time.Now().UTC()
	if ts := strings.TrimSpace(p.Message.Timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return Message{}, fmt.Errorf("parse message timestamp: %w", err)
		}
		occurredAt = parsed.UTC()
	}

	// The relay reports "received" for messages sent to the owner;
	// anything else ("sent", "delivered") is the owner writing out.
	direction := interactions.DirectionOutbound
	if strings.EqualFold(strings.TrimSpace(p.Message.Direction), "received") {
		direction = interactions.DirectionInbound
	}

	return Message{
		UID:         strings.TrimSpace(p.Message.ID),
		Phone:       strings.TrimSpace(p.Message.Phone),
		DisplayName: strings.TrimSpace(p.Message.DisplayName),
		Text:        p.Message.Text,
		Direction:   direction,
		OccurredAt:  occurredAt,
	}, nil
}
