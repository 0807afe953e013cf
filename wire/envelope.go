// Package wire implements the §6 wire protocol message envelope and
// message kinds (Publish, ConfirmReq, ConfirmAck, AscPullReq/Ack,
// Keepalive, TelemetryReq/Ack). Grounded directly on the teacher's
// node/p2p/envelope.go framing (magic ‖ command ‖ length ‖ checksum
// header, same ban-score-delta-on-malformed-input policy), generalized
// from the teacher's UTXO relay commands to this ledger's consensus
// message set.
package wire

import (
	"bytes"
	"crypto/sha3"
	"encoding/binary"
	"fmt"
	"io"
	"unicode"
)

const (
	// HeaderBytes is the fixed envelope length: magic(4) ‖ command(12) ‖
	// length(4) ‖ checksum(4).
	HeaderBytes  = 24
	CommandBytes = 12

	// MaxMessageBytes bounds a single payload (spec.md §6 "wire frame size
	// limits"), sized for the largest legitimate payload: an AscPullAck
	// bundling many blocks.
	MaxMessageBytes = 8 << 20
)

// Command names, fixed-width on the wire.
const (
	CmdPublish      = "publish"
	CmdConfirmReq   = "confirm_req"
	CmdConfirmAck   = "confirm_ack"
	CmdAscPullReq   = "asc_pull_req"
	CmdAscPullAck   = "asc_pull_ack"
	CmdKeepalive    = "keepalive"
	CmdTelemetryReq = "telemetry_req"
	CmdTelemetryAck = "telemetry_ack"
)

// Envelope is one framed wire message, payload still opaque until decoded
// by its command-specific type.
type Envelope struct {
	Magic   uint32
	Command string
	Payload []byte
}

// ReadError mirrors the teacher's disconnect/ban-score policy surface
// (node/p2p/envelope.go's ReadError): callers translate this directly into
// peer-scoring actions without re-deriving the policy.
type ReadError struct {
	Err           error
	BanScoreDelta int
	Disconnect    bool
}

func (e *ReadError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func checksum4(payload []byte) [4]byte {
	d := sha3.Sum256(payload)
	var out [4]byte
	copy(out[:], d[:4])
	return out
}

func encodeCommand(cmd string) ([CommandBytes]byte, error) {
	var out [CommandBytes]byte
	if cmd == "" || len(cmd) > CommandBytes {
		return out, fmt.Errorf("wire: invalid command length")
	}
	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		if c >= 0x80 || c == 0 || !unicode.IsPrint(rune(c)) {
			return out, fmt.Errorf("wire: command contains non-printable ASCII")
		}
		out[i] = c
	}
	return out, nil
}

func decodeCommand(b [CommandBytes]byte) (string, error) {
	n := CommandBytes
	for i := 0; i < CommandBytes; i++ {
		if b[i] == 0 {
			n = i
			break
		}
	}
	for i := n; i < CommandBytes; i++ {
		if b[i] != 0 {
			return "", fmt.Errorf("wire: command not NUL-padded")
		}
	}
	if n == 0 {
		return "", fmt.Errorf("wire: empty command")
	}
	return string(b[:n]), nil
}

// WriteEnvelope frames and writes one message.
func WriteEnvelope(w io.Writer, magic uint32, command string, payload []byte) error {
	cmd, err := encodeCommand(command)
	if err != nil {
		return err
	}
	if len(payload) > MaxMessageBytes {
		return fmt.Errorf("wire: payload too large")
	}
	var hdr [HeaderBytes]byte
	binary.BigEndian.PutUint32(hdr[0:4], magic)
	copy(hdr[4:16], cmd[:])
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(len(payload)))
	c4 := checksum4(payload)
	copy(hdr[20:24], c4[:])

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err = w.Write(payload)
	return err
}

// ReadEnvelope reads and validates one message (spec.md §6 framing):
// magic mismatch disconnects without banning; malformed command or
// checksum mismatch bans without disconnecting; a truncated payload
// disconnects and bans, while a truncated header or an oversized
// payload_length only disconnects, matching the teacher's exact delta
// values.
func ReadEnvelope(r io.Reader, expectedMagic uint32) (*Envelope, *ReadError) {
	var hdr [HeaderBytes]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, &ReadError{Err: err, Disconnect: true}
	}

	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != expectedMagic {
		return nil, &ReadError{Err: fmt.Errorf("wire: magic mismatch"), Disconnect: true}
	}

	var cmdBytes [CommandBytes]byte
	copy(cmdBytes[:], hdr[4:16])
	cmd, err := decodeCommand(cmdBytes)
	if err != nil {
		return nil, &ReadError{Err: err, BanScoreDelta: 10}
	}

	payloadLen := binary.LittleEndian.Uint32(hdr[16:20])
	if payloadLen > MaxMessageBytes {
		return nil, &ReadError{Err: fmt.Errorf("wire: payload_length exceeds max"), Disconnect: true}
	}

	var expectedC4 [4]byte
	copy(expectedC4[:], hdr[20:24])

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, &ReadError{Err: err, BanScoreDelta: 20, Disconnect: true}
		}
	}

	if computed := checksum4(payload); !bytes.Equal(expectedC4[:], computed[:]) {
		return nil, &ReadError{Err: fmt.Errorf("wire: checksum mismatch"), BanScoreDelta: 10}
	}

	return &Envelope{Magic: magic, Command: cmd, Payload: payload}, nil
}
