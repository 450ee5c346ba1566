package entities

import (
	"testing"
	"time"
)

func TestNewSessionRecord(t *testing.T) {
	record := NewSessionRecord("sess-1", "user-1", "en-US")

	if record.ID != "sess-1" || record.UserID != "user-1" || record.Language != "en-US" {
		t.Errorf("unexpected record fields: %+v", record)
	}
	if record.StartedAt.IsZero() {
		t.Error("StartedAt not set")
	}
	if record.EndedAt != nil {
		t.Error("EndedAt set on a fresh record")
	}
	if record.Turns == nil || len(record.Turns) != 0 {
		t.Errorf("Turns = %v, want empty slice", record.Turns)
	}
}

func TestAddTurnAdvancesActivity(t *testing.T) {
	record := NewSessionRecord("sess-1", "user-1", "en-US")

	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	record.AddTurn(Turn{
		Timestamp:  ts,
		Transcript: "I like tea",
		Response:   "Tea is a great choice!",
	})

	if len(record.Turns) != 1 {
		t.Fatalf("Turns = %d, want 1", len(record.Turns))
	}
	if record.LastTurnAt == nil || !record.LastTurnAt.Equal(ts) {
		t.Errorf("LastTurnAt = %v, want %v", record.LastTurnAt, ts)
	}
}

func TestAddTurnDefaultsTimestamp(t *testing.T) {
	record := NewSessionRecord("sess-1", "user-1", "en-US")

	record.AddTurn(Turn{Transcript: "hello"})

	if record.Turns[0].Timestamp.IsZero() {
		t.Error("zero turn timestamp not defaulted")
	}
}

func TestEnd(t *testing.T) {
	record := NewSessionRecord("sess-1", "user-1", "en-US")
	record.End()

	if record.EndedAt == nil {
		t.Fatal("EndedAt not set")
	}
}

func TestSessionRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  SessionRecord
		wantErr bool
	}{
		{"valid", SessionRecord{ID: "s", UserID: "u"}, false},
		{"missing id", SessionRecord{UserID: "u"}, true},
		{"missing user", SessionRecord{ID: "s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUserValidate(t *testing.T) {
	valid := User{Email: "a@b.c", Name: "A"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid user rejected: %v", err)
	}

	if err := (&User{Name: "A"}).Validate(); err == nil {
		t.Error("user without email accepted")
	}
	if err := (&User{Email: "a@b.c"}).Validate(); err == nil {
		t.Error("user without name accepted")
	}
}
