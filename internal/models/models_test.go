package models

import (
	"errors"
	"testing"
)

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		input   string
		want    Difficulty
		band    string
		wantErr bool
	}{
		{input: "easy", want: DifficultyEasy, band: "5-6"},
		{input: " Medium ", want: DifficultyMedium, band: "7-8"},
		{input: "HARD", want: DifficultyHard, band: "9-10"},
		{input: "expert", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDifficulty(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownDifficulty) {
					t.Fatalf("ParseDifficulty(%q) error = %v, want ErrUnknownDifficulty", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDifficulty(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDifficulty(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.AgeBand() != tt.band {
				t.Errorf("AgeBand() = %v, want %v", got.AgeBand(), tt.band)
			}
		})
	}
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{Question: "Who found the key?", Options: []string{"Ann", "Bo", "Cy"}, CorrectIndex: 1}

	tests := []struct {
		name    string
		mutate  func(q *Question)
		wantErr bool
	}{
		{name: "valid", mutate: func(q *Question) {}},
		{name: "blank text", mutate: func(q *Question) { q.Question = "   " }, wantErr: true},
		{name: "two options", mutate: func(q *Question) { q.Options = q.Options[:2] }, wantErr: true},
		{name: "four options", mutate: func(q *Question) { q.Options = append(q.Options, "Di") }, wantErr: true},
		{name: "empty option", mutate: func(q *Question) { q.Options = []string{"Ann", "", "Cy"} }, wantErr: true},
		{name: "index too high", mutate: func(q *Question) { q.CorrectIndex = 3 }, wantErr: true},
		{name: "negative index", mutate: func(q *Question) { q.CorrectIndex = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			q.Options = append([]string(nil), valid.Options...)
			tt.mutate(&q)
			if err := q.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuestionListScan(t *testing.T) {
	var list QuestionList
	raw := `[{"question":"Q1","options":["a","b","c"],"correct_index":2}]`

	if err := list.Scan([]byte(raw)); err != nil {
		t.Fatalf("Scan([]byte) error = %v", err)
	}
	if len(list) != 1 || list[0].CorrectIndex != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := list.Scan(raw); err != nil {
		t.Fatalf("Scan(string) error = %v", err)
	}
	if err := list.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
	if err := list.Scan(nil); err != nil || list != nil {
		t.Fatalf("Scan(nil) = %v, list %v", err, list)
	}
}

func TestGrantsAccess(t *testing.T) {
	student := "student-1"
	other := "student-2"

	tests := []struct {
		name     string
		rel      GuardianRelationship
		guardian string
		target   string
		want     bool
	}{
		{name: "approved match", rel: GuardianRelationship{GuardianID: "g", StudentID: &student, Status: RelationshipApproved}, guardian: "g", target: student, want: true},
		{name: "pending", rel: GuardianRelationship{GuardianID: "g", StudentID: &student, Status: RelationshipPending}, guardian: "g", target: student},
		{name: "rejected", rel: GuardianRelationship{GuardianID: "g", StudentID: &student, Status: RelationshipRejected}, guardian: "g", target: student},
		{name: "wrong guardian", rel: GuardianRelationship{GuardianID: "g", StudentID: &student, Status: RelationshipApproved}, guardian: "x", target: student},
		{name: "wrong student", rel: GuardianRelationship{GuardianID: "g", StudentID: &other, Status: RelationshipApproved}, guardian: "g", target: student},
		{name: "no student yet", rel: GuardianRelationship{GuardianID: "g", Status: RelationshipApproved}, guardian: "g", target: student},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rel.GrantsAccess(tt.guardian, tt.target); got != tt.want {
				t.Errorf("GrantsAccess() = %v, want %v", got, tt.want)
			}
		})
	}
}
