package devwrite

import "github.com/bft-labs/devwrite/internal/ports"

// StaticConnection returns a ConnectionSource that reports a single,
// always established connection writing through w. It suits devices that
// need no session management, and tests.
func StaticConnection(w DeviceWriter) ConnectionSource {
	return staticConnection{writer: w}
}

type staticConnection struct {
	writer DeviceWriter
}

func (s staticConnection) Subscribe(fn func(ports.ConnectionSnapshot)) func() {
	fn(ports.ConnectionSnapshot{Ref: "static", Writer: s.writer})
	return func() {}
}
