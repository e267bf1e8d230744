package orchestrators

import (
	"context"
	"fmt"
	"sync"

	"guildleague/internal/adapters/chat"
)

type sentMessage struct {
	ChannelID string
	Msg       chat.Message
}

type editedMessage struct {
	ChannelID string
	MessageID string
	Msg       chat.Message
}

// fakeChat records outbound calls. sendErr fails every Send; sendErrs fails the nth Send (1-based).
type fakeChat struct {
	mu       sync.Mutex
	sent     []sentMessage
	edited   []editedMessage
	sendErr  error
	sendErrs map[int]error
	editErr  error
	voice    map[string]string
	voiceErr map[string]error
}

func (f *fakeChat) Send(_ context.Context, channelID string, msg chat.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.sent) + 1
	if f.sendErr != nil {
		return "", f.sendErr
	}
	if err := f.sendErrs[n]; err != nil {
		f.sent = append(f.sent, sentMessage{})
		return "", err
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Msg: msg})
	return fmt.Sprintf("posted-%d", n), nil
}

func (f *fakeChat) Edit(_ context.Context, channelID, messageID string, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, editedMessage{ChannelID: channelID, MessageID: messageID, Msg: msg})
	return nil
}

func (f *fakeChat) VoiceChannel(_ context.Context, _, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.voiceErr[userID]; err != nil {
		return "", err
	}
	return f.voice[userID], nil
}

// delivered returns the messages that actually went out.
func (f *fakeChat) delivered() []sentMessage {
	var out []sentMessage
	for _, s := range f.sent {
		if s.ChannelID != "" {
			out = append(out, s)
		}
	}
	return out
}
