package connector

import "testing"

func TestPlainText(t *testing.T) {
	got := PlainText("<b>Ticket #ab12</b> from &lt;script&gt; &amp; co")
	if got != "Ticket #ab12 from <script> & co" {
		t.Errorf("got %q", got)
	}
}

func TestMrkdwn(t *testing.T) {
	got := Mrkdwn("<b>New</b> ticket <code>ab12</code>: 1 &lt; 2")
	if got != "*New* ticket `ab12`: 1 < 2" {
		t.Errorf("got %q", got)
	}
}
