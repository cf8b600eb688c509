package coordstore

import "testing"

func TestKeys_Scheme(t *testing.T) {
	k := NewKeys("locker")
	cases := []struct {
		got  string
		want string
	}{
		{k.Reservation("t1", "s1"), "locker:reservation:t1:s1"},
		{k.UnlockJTI("abc"), "locker:jti:unlock:abc"},
		{k.MagicLinkJTI("abc"), "locker:jti:magiclink:abc"},
		{k.Session("sess1"), "locker:session:sess1"},
		{k.UnlockRate("t1", "r1"), "locker:rate:unlock:t1:r1"},
		{k.StepUp("u1"), "locker:stepup:u1"},
		{k.DeviceStatus("t1", "d1"), "locker:device:status:t1:d1"},
		{k.SlotReset("t1", "s1"), "locker:slotreset:t1:s1"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("key = %q, want %q", c.got, c.want)
		}
	}
}
