package reminder

// Report is the outcome of one reminder run.
type Report struct {
	CheckOnly        bool
	Channels         []string // channels delivered to, in first-use order
	AttemptedBuckets int
	MessagesSent     int
	Skipped          []string // message ids without a resolvable channel
	Buckets          []BucketReport
}

// BucketReport details one slot of a reminder run.
type BucketReport struct {
	SlotTime   string
	ChannelID  string // empty for voice checks and unroutable messages
	TeamA      int
	TeamB      int
	TeamBGated bool // Team B had members but fewer than TeamBThreshold
	Sent       int
	Failures   []string
	Absent     map[string][]string // team -> members outside the expected voice channel
}

// Failed counts the delivery failures across all buckets.
func (r Report) Failed() int {
	n := 0
	for _, b := range r.Buckets {
		n += len(b.Failures)
	}
	return n
}
