package device

import "strings"

// MatchTopic reports whether topic matches pattern under single-level
// wildcard rules: "+" matches exactly one topic segment. Matching is
// deterministic and purely segment-wise; there is no multi-level wildcard.
func MatchTopic(pattern, topic string) bool {
	p := strings.Split(pattern, "/")
	t := strings.Split(topic, "/")
	if len(p) != len(t) {
		return false
	}
	for i := range p {
		if p[i] == "+" {
			continue
		}
		if p[i] != t[i] {
			return false
		}
	}
	return true
}
