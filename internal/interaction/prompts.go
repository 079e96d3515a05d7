package interaction

import (
	"fmt"
	"strings"
)

// previewLen bounds how much fetched context is written to the log.
const previewLen = 100

const tweetStyle = `<tweetStyle>
- never use hashtags or emojis
- keep it short, punchy and to the point
- don't say "ah yes" or "oh"
- no rhetorical questions, occasionally a provocative one
- mostly lowercase
- go deep down the rabbithole
</tweetStyle>`

func replyPrompt(text, handle, searchContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Respond to this tweet from @%s:\n<tweet>\n%s\n</tweet>\n", handle, text)
	if searchContext != "" {
		fmt.Fprintf(&b, "\nYou found this tweet while looking into the following:\n<searchContext>\n%s\n</searchContext>\n", searchContext)
	}
	b.WriteString("\nWrite only the reply text. Do not wrap it in quotes.")
	return b.String()
}

func followerPrompt(handle, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tweet to your follower - %s make sure to include their handle i.e. @%s\n", handle, handle)
	if description != "" {
		fmt.Fprintf(&b, "Their profile says:\n<profile>\n%s\n</profile>\n", description)
	}
	b.WriteString("\n")
	b.WriteString(tweetStyle)
	b.WriteString("\n\nBase the tweet on your current thought process & stay true to your identity.")
	return b.String()
}

func fetchedContext(fetched string) string {
	return "<fetchedContext>\n" + fetched + "\n</fetchedContext>"
}

func mergeContext(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

func replySummary(handle, text, response string) string {
	return fmt.Sprintf("You had the following interaction with %s\n%s tweeted : %s\nYou responded with : %s",
		handle, handle, text, response)
}

func followerSummary(handle, text, description string) string {
	return fmt.Sprintf("You tweeted to %s : %s\nProfile of %s : %s\nThey follow you",
		handle, text, handle, description)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen])
}
