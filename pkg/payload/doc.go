// Package payload defines the wire-level message bodies exchanged between a
// game server and a tablenode peripheral, together with the codecs used to
// decode and encode them.
//
// # Overview
//
// A tablenode listens on a small set of inbound topics and publishes on a
// couple of outbound ones. Every body that carries structure is one of:
//
//   - DisplayCommand: two lines of text and a hold time for the character display
//   - ToneCommand: parallel arrays of frequencies and step durations for the buzzer
//   - ButtonEvent: a classified button press published by the node
//
// Turn notifications are opaque and never decoded; they are relayed verbatim.
//
// # Codecs
//
// Bodies are JSON by default. CBOR is available for constrained links where
// the game server prefers a binary encoding. Both codecs share the same field
// names, so a DisplayCommand looks like this in JSON:
//
//	{"top": "Your turn", "down": "Roll the dice", "time": 2000}
//
// and a ToneCommand like this:
//
//	{"tones": [440, 660, 0], "duration": [200, 200, 0]}
//
// # Errors
//
// Every decode failure is reported as a *DecodeError. Callers treat it as
// non-fatal: the message is discarded and processing continues.
//
//	cmd, err := payload.DecodeDisplay(payload.JSON, body)
//	var decodeErr *payload.DecodeError
//	if errors.As(err, &decodeErr) {
//		log.Printf("[WARN] dropping display command: %v", decodeErr)
//	}
package payload
