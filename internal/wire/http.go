package wire

import (
	"fmt"
)

// KeepAlivePage is served to the extension's GET polls. The script reloads
// the host page after 5 seconds so a hung extension tab is picked up again.
const KeepAlivePage = `<html><head><title>WebDriver</title>
<script type="text/javascript">
window.setTimeout(function() {
  var href = window.location.href;
  if (href.indexOf("?reloaded") < 0) { href += "?reloaded"; }
  window.location.href = href;
}, 5000);
</script>
</head><body><p>WebDriver remote control: keep this tab open.</p></body></html>`

const (
	contentTypeJSON = "application/json; charset=UTF-8"
	contentTypeHTML = "text/html"
)

// CommandReply wraps a serialized command in an HTTP 200 response.
func CommandReply(body []byte) []byte {
	return httpOK(contentTypeJSON, body)
}

// KeepAliveReply is the full HTTP response to a GET poll.
func KeepAliveReply() []byte {
	return httpOK(contentTypeHTML, []byte(KeepAlivePage))
}

func httpOK(contentType string, body []byte) []byte {
	head := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\nContent-Type: %s\r\n\r\n", len(body), contentType)
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	return append(out, body...)
}
