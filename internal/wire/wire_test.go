package wire

import (
	"errors"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		wantErr error
		want    string
	}{
		{name: "chat message", data: `{"type":"chat.message","userId":"A","text":"hi"}`, want: TypeChatMessage},
		{name: "pick", data: `{"type":"draft.picked"}`, want: TypeDraftPicked},
		{name: "not json", data: `hello there`, wantErr: ErrMalformed},
		{name: "empty", data: ``, wantErr: ErrMalformed},
		{name: "json but unknown type", data: `{"type":"mystery"}`, wantErr: ErrUnknownType},
		{name: "json without type", data: `{"userId":"A"}`, wantErr: ErrUnknownType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Decode([]byte(tc.data))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if f.Type != tc.want {
				t.Fatalf("want type %q, got %q", tc.want, f.Type)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	deadline := time.Now().Add(30 * time.Second)
	f := Turn(TypeDraftTurnStart, 2, "B", deadline, "IN_PROGRESS")

	got, err := Decode(f.Encode())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.RoundNum != 2 || got.CurrentUser != "B" || got.DraftState != "IN_PROGRESS" {
		t.Fatalf("turn frame mangled: %+v", got)
	}
	if _, err := time.Parse(time.RFC3339, got.Deadline); err != nil {
		t.Fatalf("deadline must be RFC3339: %q", got.Deadline)
	}
	if _, err := time.Parse(time.RFC3339, got.TS); err != nil {
		t.Fatalf("ts must be RFC3339: %q", got.TS)
	}
}
