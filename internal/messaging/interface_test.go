package messaging

import (
	"reflect"
	"testing"
)

func TestIncomingMessage_CommandAndArgs(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCmd  string
		wantArgs []string
	}{
		{"plain_command", "/tasks", "/tasks", nil},
		{"with_args", "/tasks status=completed", "/tasks", []string{"status=completed"}},
		{"bot_suffix", "/tasks@danmakubot status=x", "/tasks", []string{"status=x"}},
		{"not_command", "hello there", "", []string{"there"}},
		{"extra_spaces", "  /users   ", "", nil},
		{"empty", "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &IncomingMessage{Text: tt.text}
			if got := msg.Command(); got != tt.wantCmd {
				t.Errorf("Command() = %q, want %q", got, tt.wantCmd)
			}
			if got := msg.Args(); !reflect.DeepEqual(got, tt.wantArgs) {
				t.Errorf("Args() = %q, want %q", got, tt.wantArgs)
			}
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		user User
		want string
	}{
		{User{Username: "alice", FirstName: "Alice"}, "@alice"},
		{User{FirstName: "Bob", LastName: "Smith"}, "Bob Smith"},
		{User{FirstName: "Carol"}, "Carol"},
		{User{}, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.user.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}
