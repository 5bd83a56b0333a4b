package connector

import (
	"html"
	"regexp"
	"strings"
)

var reTag = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// PlainText strips the HTML subset used in OutboundMessage.Content and
// unescapes entities, for platforms or fallbacks that need plain text.
func PlainText(s string) string {
	return html.UnescapeString(reTag.ReplaceAllString(s, ""))
}

var mrkdwnTags = strings.NewReplacer(
	"<b>", "*", "</b>", "*",
	"<i>", "_", "</i>", "_",
	"<code>", "`", "</code>", "`",
	"<pre>", "```", "</pre>", "```",
)

// Mrkdwn converts the OutboundMessage HTML subset to Slack-style markup.
// The result is unescaped; callers hand it to an API that escapes &, < and >.
func Mrkdwn(s string) string {
	return PlainText(mrkdwnTags.Replace(s))
}
