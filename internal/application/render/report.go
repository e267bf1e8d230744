package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"guildleague/internal/domain/reminder"
)

// mdRenderer escapes raw HTML in its input; WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Markdown converts markdown to HTML with raw HTML escaped.
func Markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// ReminderReportSubject is the mail subject line of a delivery report.
func ReminderReportSubject(r reminder.Report) string {
	if n := r.Failed(); n > 0 {
		return fmt.Sprintf("Reminder run: %d sent, %d failed", r.MessagesSent, n)
	}
	return fmt.Sprintf("Reminder run: %d sent", r.MessagesSent)
}

// ReminderReportMarkdown summarises a reminder run for mail and the dashboard.
func ReminderReportMarkdown(r reminder.Report) string {
	var b strings.Builder
	if r.CheckOnly {
		b.WriteString("## Voice check\n\n")
	} else {
		b.WriteString("## Reminder delivery\n\n")
	}
	fmt.Fprintf(&b, "- Buckets attempted: **%d**\n", r.AttemptedBuckets)
	if !r.CheckOnly {
		fmt.Fprintf(&b, "- Messages sent: **%d**\n", r.MessagesSent)
	}
	if len(r.Channels) > 0 {
		fmt.Fprintf(&b, "- Channels: `%s`\n", strings.Join(r.Channels, "`, `"))
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "- Skipped messages (no channel): `%s`\n", strings.Join(r.Skipped, "`, `"))
	}

	for _, bucket := range r.Buckets {
		if bucket.ChannelID != "" && len(r.Channels) > 1 {
			fmt.Fprintf(&b, "\n### %s in `%s`\n\n", bucket.SlotTime, bucket.ChannelID)
		} else {
			fmt.Fprintf(&b, "\n### %s\n\n", bucket.SlotTime)
		}
		fmt.Fprintf(&b, "Team A: %d, Team B: %d", bucket.TeamA, bucket.TeamB)
		if bucket.TeamBGated {
			fmt.Fprintf(&b, " (Team B below %d, not pinged)", reminder.TeamBThreshold)
		}
		b.WriteString("\n")
		if !r.CheckOnly {
			fmt.Fprintf(&b, "\nSent: %d\n", bucket.Sent)
		}
		for _, f := range bucket.Failures {
			fmt.Fprintf(&b, "\n- ❌ %s", f)
		}
		if len(bucket.Failures) > 0 {
			b.WriteString("\n")
		}
		teams := make([]string, 0, len(bucket.Absent))
		for team := range bucket.Absent {
			teams = append(teams, team)
		}
		sort.Strings(teams)
		for _, team := range teams {
			users := bucket.Absent[team]
			if len(users) == 0 {
				fmt.Fprintf(&b, "\n- Team %s: everyone is in voice", team)
				continue
			}
			fmt.Fprintf(&b, "\n- Team %s missing (%d): `%s`", team, len(users), strings.Join(users, "`, `"))
		}
		if len(teams) > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
