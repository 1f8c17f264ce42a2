package chat

import "log/slog"

// Sink delivers the pipeline's rendered lines through the connector. The
// client serializes its own writes, so Sink is safe for concurrent use by
// the foreground pipeline and the broadcast loops.
type Sink struct {
	conn *Connector
}

// NewSink wraps conn as the pipeline's output.
func NewSink(conn *Connector) *Sink {
	return &Sink{conn: conn}
}

// SendLine writes one message body to the channel. Keep-alive responses are
// dropped since the client answers PINGs itself.
func (s *Sink) SendLine(line string) {
	if len(line) >= 5 && line[:5] == "PONG " {
		return
	}
	s.conn.Say(line)
}

// PlaySound logs the sound reference. Audio playback happens on the
// operator's machine, not in this process.
func (s *Sink) PlaySound(ref string) {
	slog.Info("play sound", slog.String("file", ref))
}
