package device

import "testing"

func TestMatchTopic(t *testing.T) {
	cases := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"locker/evt/t1/site1/shelf1/unlock_success", "locker/evt/t1/site1/shelf1/unlock_success", true},
		{"locker/evt/t1/site1/+/+", "locker/evt/t1/site1/shelf1/unlock_success", true},
		{"locker/evt/t1/site1/+/+", "locker/evt/t1/site1/shelf2/door_opened", true},
		{"locker/evt/t1/site1/+/+", "locker/evt/t1/site2/shelf1/unlock_success", false},
		{"locker/evt/+/+/+/+", "locker/evt/t2/site9/shelf3/tamper_detected", true},
		// "+" matches exactly one segment, never zero or two
		{"locker/evt/t1/+", "locker/evt/t1/site1/shelf1/unlock_success", false},
		{"locker/evt/t1/site1/+/+", "locker/evt/t1/site1/shelf1", false},
		{"locker/cmd/t1/site1/shelf1", "locker/evt/t1/site1/shelf1", false},
	}
	for _, c := range cases {
		if got := MatchTopic(c.pattern, c.topic); got != c.want {
			t.Errorf("MatchTopic(%q, %q) = %v, want %v", c.pattern, c.topic, got, c.want)
		}
	}
}
