package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/adapters/email"
	"guildleague/internal/application/render"
	"guildleague/internal/domain/outbox"
	"guildleague/internal/domain/reminder"
	"guildleague/internal/domain/signup"
)

// voiceCheckConcurrency bounds parallel presence lookups.
const voiceCheckConcurrency = 8

// ReminderChat is the chat surface reminders need. chat.Platform satisfies it.
type ReminderChat interface {
	Send(ctx context.Context, channelID string, msg chat.Message) (string, error)
	VoiceChannel(ctx context.Context, guildID, userID string) (string, error)
}

// ReminderSignupStore lists the roster of the target messages.
type ReminderSignupStore interface {
	ListByMessages(ctx context.Context, messageIDs []string) ([]signup.Entry, error)
}

// ReminderMessageStore resolves where the target messages live.
type ReminderMessageStore interface {
	Get(ctx context.Context, messageID string) (signup.MessageMeta, error)
}

// SendRemindersInput selects what to remind.
type SendRemindersInput struct {
	MessageIDs []string
	SlotTime   string // empty reminds every slot
	Note       string
	CheckOnly  bool
	// ExpectedVoice maps team (A, B) to the voice channel members should be in; CheckOnly only.
	ExpectedVoice map[string]string
}

// SendRemindersDeps holds dependencies for SendReminders.
type SendRemindersDeps struct {
	Signups    ReminderSignupStore
	Messages   ReminderMessageStore
	Chat       ReminderChat
	Mailer     email.Sender // optional
	ReportTo   []string     // optional
	Outbox     OutboxEnqueuer
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteSendReminders pings team members per slot, or checks their voice presence.
// Each message's members are pinged in that message's own channel.
// Delivery is best-effort: each failed chunk is recorded and the run continues.
// PRE: at least one message id
// POST: Report lists every bucket attempted; failures never abort siblings
func ExecuteSendReminders(ctx context.Context, input SendRemindersInput, deps SendRemindersDeps) (reminder.Report, error) {
	report := reminder.Report{CheckOnly: input.CheckOnly}
	if len(input.MessageIDs) == 0 {
		return report, invalid("messages", "at least one message is required")
	}

	guildID := ""
	var groups []channelGroup
	var unrouted []string
	for _, id := range input.MessageIDs {
		meta, err := deps.Messages.Get(ctx, id)
		if err != nil && !isNoRows(err) {
			return report, fmt.Errorf("load message meta %s: %w", id, err)
		}
		if err != nil || meta.ChannelID == "" {
			report.Skipped = append(report.Skipped, id)
			unrouted = append(unrouted, id)
			continue
		}
		if guildID == "" {
			guildID = meta.GuildID
		}
		groups = addToGroup(groups, meta.ChannelID, id)
	}

	if input.CheckOnly {
		// Voice checks send nothing; all messages form one group.
		groups = []channelGroup{{messageIDs: input.MessageIDs}}
	} else if len(unrouted) > 0 {
		groups = append(groups, channelGroup{messageIDs: unrouted})
	}

	for _, g := range groups {
		if !input.CheckOnly && g.channelID != "" {
			report.Channels = append(report.Channels, g.channelID)
		}
		entries, err := deps.Signups.ListByMessages(ctx, g.messageIDs)
		if err != nil {
			return report, fmt.Errorf("list signups: %w", err)
		}
		for _, b := range reminder.BuildBuckets(entries, input.SlotTime) {
			report.Buckets = append(report.Buckets, deliverBucket(ctx, input, deps, g.channelID, guildID, b, &report))
		}
	}

	slog.Info("reminder_event", "event", "run_complete", "check_only", input.CheckOnly,
		"buckets", report.AttemptedBuckets, "sent", report.MessagesSent,
		"failed", report.Failed(), "skipped", len(report.Skipped))

	if !input.CheckOnly && report.AttemptedBuckets > 0 {
		mailReport(ctx, report, deps)
	}
	return report, nil
}

// channelGroup is the set of messages whose reminders go to one channel.
type channelGroup struct {
	channelID  string
	messageIDs []string
}

func addToGroup(groups []channelGroup, channelID, messageID string) []channelGroup {
	for i := range groups {
		if groups[i].channelID == channelID {
			groups[i].messageIDs = append(groups[i].messageIDs, messageID)
			return groups
		}
	}
	return append(groups, channelGroup{channelID: channelID, messageIDs: []string{messageID}})
}

// deliverBucket sends, or voice-checks, one slot bucket and records the outcome.
func deliverBucket(ctx context.Context, input SendRemindersInput, deps SendRemindersDeps,
	channelID, guildID string, b reminder.Bucket, report *reminder.Report) reminder.BucketReport {
	detail := reminder.BucketReport{
		SlotTime:   b.SlotTime,
		ChannelID:  channelID,
		TeamA:      len(b.TeamA),
		TeamB:      len(b.TeamB),
		TeamBGated: len(b.TeamB) > 0 && len(b.TeamB) < reminder.TeamBThreshold,
	}
	report.AttemptedBuckets++

	if input.CheckOnly {
		detail.Absent = checkVoice(ctx, deps.Chat, guildID, b, input.ExpectedVoice, &detail)
		return detail
	}
	if channelID == "" {
		detail.Failures = append(detail.Failures, "no resolvable channel")
		return detail
	}

	for _, m := range reminder.Plan(b, input.Note) {
		_, err := deps.Chat.Send(ctx, channelID, chat.Message{Content: m.Body, Mentions: m.Recipients})
		if err != nil {
			detail.Failures = append(detail.Failures, describeSendFailure(m, err))
			slog.Warn("reminder_event", "event", "send_failed", "channel_id", channelID, "slot", m.SlotTime,
				"teams", strings.Join(m.Teams, ","), "error", err.Error())
			continue
		}
		detail.Sent++
		report.MessagesSent++
	}
	return detail
}

func describeSendFailure(m reminder.Message, err error) string {
	teams := strings.Join(m.Teams, "+")
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return fmt.Sprintf("team %s: channel not found", teams)
	case errors.Is(err, chat.ErrNotTextChannel):
		return fmt.Sprintf("team %s: channel is not text-capable", teams)
	default:
		return fmt.Sprintf("team %s: %v", teams, err)
	}
}

// checkVoice looks up each eligible member's voice channel concurrently.
func checkVoice(ctx context.Context, platform ReminderChat, guildID string, b reminder.Bucket,
	expected map[string]string, detail *reminder.BucketReport) map[string][]string {
	teams := map[string][]string{signup.TeamA: b.TeamA, signup.TeamB: b.TeamB}
	absent := make(map[string][]string)

	for _, team := range []string{signup.TeamA, signup.TeamB} {
		channel, ok := expected[team]
		members := teams[team]
		if !ok || channel == "" || len(members) == 0 {
			continue
		}

		var mu sync.Mutex
		current := make(map[string]string, len(members))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(voiceCheckConcurrency)
		for _, userID := range members {
			g.Go(func() error {
				voice, err := platform.VoiceChannel(gctx, guildID, userID)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					detail.Failures = append(detail.Failures, fmt.Sprintf("voice lookup %s: %v", userID, err))
					return nil
				}
				current[userID] = voice
				return nil
			})
		}
		_ = g.Wait()
		absent[team] = reminder.Absentees(members, channel, current)
	}
	return absent
}

// reportPayload is the outbox payload of report mail.
type reportPayload struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// mailReport sends the run summary, queueing it for retry when the provider fails.
func mailReport(ctx context.Context, report reminder.Report, deps SendRemindersDeps) {
	if deps.Mailer == nil || len(deps.ReportTo) == 0 {
		return
	}
	text := render.ReminderReportMarkdown(report)
	html, err := render.Markdown(text)
	if err != nil {
		slog.Error("reminder_event", "event", "report_render_failed", "error", err.Error())
		return
	}
	payload := reportPayload{Subject: render.ReminderReportSubject(report), HTML: html, Text: text}

	req := email.SendRequest{To: deps.ReportTo, Subject: payload.Subject, HTML: payload.HTML, Text: payload.Text, Tag: "reminder_report"}
	_, err = deps.Mailer.Send(ctx, req)
	if err == nil {
		return
	}
	slog.Warn("reminder_event", "event", "report_mail_deferred", "error", err.Error())
	if deps.Outbox == nil {
		return
	}
	raw, _ := json.Marshal(payload)
	target := strings.Join(deps.ReportTo, ",")
	if qerr := enqueue(ctx, deps.Outbox, outbox.ActionReportEmail, target, string(raw), err, deps.GenerateID, deps.Now); qerr != nil {
		slog.Error("reminder_event", "event", "report_enqueue_failed", "error", qerr.Error())
	}
}

// ReportMailExecutor replays deferred report mail.
type ReportMailExecutor struct {
	Mailer email.Sender
}

// Execute sends the stored report to the comma-separated recipients in target.
// PRE: payload is a JSON reportPayload
// POST: Mail handed to the provider, or the provider error
func (e ReportMailExecutor) Execute(ctx context.Context, target, payload string) error {
	var p reportPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	var to []string
	for _, addr := range strings.Split(target, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	_, err := e.Mailer.Send(ctx, email.SendRequest{To: to, Subject: p.Subject, HTML: p.HTML, Text: p.Text, Tag: "reminder_report"})
	return err
}
