package bus

import (
	"strings"
)

const (
	topicKey   = "topic:"
	messageKey = "message:"
)

// ParseTemplate extracts a topic and message from text of the form
//
//	TOPIC: <name>
//	MESSAGE: <body>
//
// Keys are case-insensitive. The TOPIC line may be preceded by other lines;
// the MESSAGE line must follow it. The message is everything after the
// MESSAGE key, including embedded newlines, trimmed of surrounding space.
// ok is false when either key is missing or the topic is empty.
func ParseTemplate(text string) (topic, message string, ok bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	topicLine := -1
	for index, line := range lines {
		trimmed := strings.TrimSpace(line)
		if hasPrefixFold(trimmed, topicKey) {
			topic = strings.TrimSpace(trimmed[len(topicKey):])
			topicLine = index
			break
		}
	}
	if topicLine < 0 || topic == "" {
		return "", "", false
	}

	for index := topicLine + 1; index < len(lines); index++ {
		trimmed := strings.TrimLeft(lines[index], " \t")
		if !hasPrefixFold(trimmed, messageKey) {
			if strings.TrimSpace(trimmed) == "" {
				continue
			}
			return "", "", false
		}

		rest := trimmed[len(messageKey):]
		if index+1 < len(lines) {
			rest += "\n" + strings.Join(lines[index+1:], "\n")
		}
		return topic, strings.TrimSpace(rest), true
	}

	return "", "", false
}

func hasPrefixFold(text, prefix string) bool {
	return len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix)
}
