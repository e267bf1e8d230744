package participation

import (
	"strings"
	"testing"
	"time"
)

func TestParseLog(t *testing.T) {
	log := strings.Join([]string{
		"PLAYER|in-scope guild|Kaelith|12|3",
		"PLAYER|in-scope guild|Morrow|4|1",
		"PLAYER|in-scope guild|Kaelith|8|0",
		"PLAYER|other guild|Kaelith|1|1",
		"GUILD|in-scope guild|summary",
		"PLAYER|in-scope guild|",
		"PLAYER",
		"",
		"PLAYER|in-scope guild|Kaelith",
	}, "\n")

	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	got, err := ParseLog(strings.NewReader(log), DefaultScope, now)
	if err != nil {
		t.Fatalf("ParseLog: %v", err)
	}
	if got.Counted != 4 {
		t.Errorf("Counted = %d, want 4", got.Counted)
	}
	if got.Malformed != 2 {
		t.Errorf("Malformed = %d, want 2", got.Malformed)
	}
	if got.Lines != 8 {
		t.Errorf("Lines = %d, want 8", got.Lines)
	}
	if len(got.Records) != 2 {
		t.Fatalf("Records = %+v, want 2 characters", got.Records)
	}
	if got.Records[0].CharacterName != "Kaelith" || got.Records[0].GamesPlayed != 3 {
		t.Errorf("first record = %+v, want Kaelith with 3", got.Records[0])
	}
	if got.Records[1].CharacterName != "Morrow" || got.Records[1].GamesPlayed != 1 {
		t.Errorf("second record = %+v, want Morrow with 1", got.Records[1])
	}
	if !got.Records[0].LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", got.Records[0].LastUpdated, now)
	}
}

func TestParseLog_RequiresScope(t *testing.T) {
	if _, err := ParseLog(strings.NewReader(""), " ", time.Now()); err != ErrEmptyScope {
		t.Errorf("err = %v, want ErrEmptyScope", err)
	}
}

func TestIndex(t *testing.T) {
	idx := Index([]GameParticipation{{CharacterName: "A", GamesPlayed: 2}})
	if idx["A"] != 2 || idx["B"] != 0 {
		t.Errorf("Index = %v", idx)
	}
}
