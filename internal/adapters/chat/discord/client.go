// Package discord implements the chat platform port on top of discordgo and
// runs the gateway bot that turns interactions into roster commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/adapters/http/perf"
)

// DefaultRatePerSecond bounds outbound REST calls when configuration leaves it unset.
const DefaultRatePerSecond = 5

// defaultMaxRetries is how many times a transient failure is retried.
const defaultMaxRetries = 3

// restAPI is the slice of *discordgo.Session the client calls.
type restAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
}

var _ restAPI = (*discordgo.Session)(nil)

// Client implements chat.Platform.
// Calls are rate limited and transient failures retried with exponential backoff.
type Client struct {
	api        restAPI
	state      *discordgo.State
	limiter    *rate.Limiter
	collector  *perf.Collector
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

var _ chat.Platform = (*Client)(nil)

// NewClient wraps a session. collector may be nil.
// PRE: session is created with discordgo.New
// POST: A non-positive ratePerSecond falls back to DefaultRatePerSecond
func NewClient(session *discordgo.Session, ratePerSecond float64, collector *perf.Collector) *Client {
	return newClient(session, session.State, ratePerSecond, collector)
}

func newClient(api restAPI, state *discordgo.State, ratePerSecond float64, collector *perf.Collector) *Client {
	if ratePerSecond <= 0 {
		ratePerSecond = DefaultRatePerSecond
	}
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		api:        api,
		state:      state,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		collector:  collector,
		maxRetries: defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 8 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// Send posts msg and returns the new message id.
func (c *Client) Send(ctx context.Context, channelID string, msg chat.Message) (string, error) {
	if err := c.checkTextChannel(ctx, channelID); err != nil {
		return "", err
	}
	var id string
	err := c.call(ctx, "send", func(opts ...discordgo.RequestOption) error {
		sent, err := c.api.ChannelMessageSendComplex(channelID, toMessageSend(msg), opts...)
		if err != nil {
			return err
		}
		id = sent.ID
		return nil
	})
	return id, err
}

// Edit replaces a posted message's embeds, and its controls when msg.Rows is non-nil.
func (c *Client) Edit(ctx context.Context, channelID, messageID string, msg chat.Message) error {
	return c.call(ctx, "edit", func(opts ...discordgo.RequestOption) error {
		_, err := c.api.ChannelMessageEditComplex(toMessageEdit(channelID, messageID, msg), opts...)
		return err
	})
}

// Layout reads the embed title and button ids of a posted message.
func (c *Client) Layout(ctx context.Context, channelID, messageID string) (chat.Layout, error) {
	var layout chat.Layout
	err := c.call(ctx, "layout", func(opts ...discordgo.RequestOption) error {
		m, err := c.api.ChannelMessage(channelID, messageID, opts...)
		if err != nil {
			return err
		}
		layout = layoutOf(m)
		return nil
	})
	return layout, err
}

// VoiceChannel reads the gateway's voice state cache; users not in voice return "".
func (c *Client) VoiceChannel(_ context.Context, guildID, userID string) (string, error) {
	vs, err := c.state.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	}
	if err != nil {
		return "", &chat.TransportError{Op: "voice", Err: err}
	}
	return vs.ChannelID, nil
}

// UserName resolves a user id to the account username.
func (c *Client) UserName(ctx context.Context, userID string) (string, error) {
	var name string
	err := c.call(ctx, "user", func(opts ...discordgo.RequestOption) error {
		u, err := c.api.User(userID, opts...)
		if err != nil {
			return err
		}
		name = u.Username
		return nil
	})
	return name, err
}

// GuildName resolves a guild id, preferring the gateway cache.
func (c *Client) GuildName(ctx context.Context, guildID string) (string, error) {
	if g, err := c.state.Guild(guildID); err == nil && g.Name != "" {
		return g.Name, nil
	}
	var name string
	err := c.call(ctx, "guild", func(opts ...discordgo.RequestOption) error {
		g, err := c.api.Guild(guildID, opts...)
		if err != nil {
			return err
		}
		name = g.Name
		return nil
	})
	return name, err
}

func (c *Client) checkTextChannel(ctx context.Context, channelID string) error {
	ch, err := c.state.Channel(channelID)
	if err != nil {
		err = c.call(ctx, "channel", func(opts ...discordgo.RequestOption) error {
			fetched, err := c.api.Channel(channelID, opts...)
			ch = fetched
			return err
		})
		if err != nil {
			return err
		}
	}
	if !textCapable(ch.Type) {
		return fmt.Errorf("channel %s: %w", channelID, chat.ErrNotTextChannel)
	}
	return nil
}

// call runs fn under the rate limiter, retrying transient failures.
// POST: Errors are chat.ErrNotFound (wrapped) or *chat.TransportError
func (c *Client) call(ctx context.Context, op string, fn func(opts ...discordgo.RequestOption) error) error {
	start := time.Now()
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(&chat.TransportError{Op: op, Err: err})
		}
		err := fn(discordgo.WithContext(ctx))
		if err == nil {
			return nil
		}
		classified := classify(op, err)
		if !retryable(err) {
			return backoff.Permanent(classified)
		}
		return classified
	}, policy, func(err error, wait time.Duration) {
		slog.Warn("chat_event", "event", "retry", "op", op, "wait_ms", wait.Milliseconds(), "error", err.Error())
	})

	c.record(op, start, err)
	return err
}

func (c *Client) record(op string, start time.Time, err error) {
	if c.collector == nil {
		return
	}
	status := 0
	if err != nil {
		status = 1
	}
	c.collector.Record(perf.Entry{
		Kind:       perf.KindChat,
		Path:       "chat " + op,
		StatusCode: status,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:  start,
	})
}

// unknownResourceCodes are API error codes meaning the target no longer exists.
var unknownResourceCodes = map[int]bool{
	discordgo.ErrCodeUnknownChannel: true,
	discordgo.ErrCodeUnknownGuild:   true,
	discordgo.ErrCodeUnknownMember:  true,
	discordgo.ErrCodeUnknownMessage: true,
	discordgo.ErrCodeUnknownUser:    true,
}

// classify maps a discordgo error onto the port's error taxonomy.
func classify(op string, err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Message != nil && unknownResourceCodes[rest.Message.Code] {
			return fmt.Errorf("chat %s: %w", op, chat.ErrNotFound)
		}
		if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("chat %s: %w", op, chat.ErrNotFound)
		}
	}
	return &chat.TransportError{Op: op, Err: err}
}

// retryable reports whether another attempt may succeed: server errors,
// rate limits and failures that never reached the API.
func retryable(err error) bool {
	var limited *discordgo.RateLimitError
	if errors.As(err, &limited) {
		return true
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Response == nil {
			return true
		}
		code := rest.Response.StatusCode
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
