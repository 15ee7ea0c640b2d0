package validation

import (
	"errors"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "valid email", email: "test@example.com"},
		{name: "valid email with subdomain", email: "user@mail.example.com"},
		{name: "valid email with plus", email: "user+tag@example.com"},
		{name: "missing @", email: "testexample.com", wantErr: true},
		{name: "missing domain", email: "test@", wantErr: true},
		{name: "missing local part", email: "@example.com", wantErr: true},
		{name: "empty string", email: "", wantErr: true},
		{name: "spaces in email", email: "test @example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestQuestionCount(t *testing.T) {
	tests := []struct {
		input   int
		want    int
		wantErr bool
	}{
		{input: 0, want: DefaultQuestionCount},
		{input: 3, want: 3},
		{input: 20, want: 20},
		{input: 2, wantErr: true},
		{input: 21, wantErr: true},
		{input: -5, wantErr: true},
	}

	for _, tt := range tests {
		got, err := QuestionCount(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("QuestionCount(%d) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("QuestionCount(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestValidateEvent(t *testing.T) {
	bookID := "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	userID := "9b2d9a8e-1c4f-4b7a-8f0e-2a1b3c4d5e6f"
	str := func(s string) *string { return &s }
	num := func(i int) *int { return &i }

	tests := []struct {
		name      string
		in        EventInput
		wantField string
	}{
		{name: "minimal started", in: EventInput{EventType: "quiz_started", BookID: bookID}},
		{name: "full completed", in: EventInput{EventType: "quiz_completed", BookID: bookID, AgeBand: str("hard"), Score: num(100), UserID: str(userID)}},
		{name: "unknown type", in: EventInput{EventType: "quiz_paused", BookID: bookID}, wantField: "event_type"},
		{name: "bad book id", in: EventInput{EventType: "quiz_started", BookID: "42"}, wantField: "book_id"},
		{name: "missing book id", in: EventInput{EventType: "quiz_started"}, wantField: "book_id"},
		{name: "age band is a tier name", in: EventInput{EventType: "quiz_started", BookID: bookID, AgeBand: str("7-8")}, wantField: "age_band"},
		{name: "score too high", in: EventInput{EventType: "quiz_completed", BookID: bookID, Score: num(101)}, wantField: "score"},
		{name: "negative score", in: EventInput{EventType: "quiz_completed", BookID: bookID, Score: num(-1)}, wantField: "score"},
		{name: "bad user id", in: EventInput{EventType: "quiz_completed", BookID: bookID, UserID: str("me")}, wantField: "user_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEvent(tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateEvent() unexpected error: %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateEvent() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateRelationshipType(t *testing.T) {
	for _, ok := range []string{"parent", "teacher"} {
		if err := ValidateRelationshipType(ok); err != nil {
			t.Errorf("ValidateRelationshipType(%q) error = %v", ok, err)
		}
	}
	if err := ValidateRelationshipType("uncle"); err == nil {
		t.Error("expected error for unknown relationship type")
	}
}
