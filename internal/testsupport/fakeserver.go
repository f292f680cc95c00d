// Package testsupport provides an in-process fake RethinkDB wire-protocol
// peer for unit tests that need a full client all the way through a real
// V1_0/SCRAM handshake, without a live server.
package testsupport

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"rethinkdriver/internal/proto"
	"rethinkdriver/internal/scram"
	"rethinkdriver/internal/wire"
)

const maxHandshakeSize = 16 * 1024

func readNullTerminated(r io.Reader) ([]byte, error) {
	var buf []byte
	b := make([]byte, 1)
	for {
		if _, err := r.Read(b); err != nil {
			return nil, err
		}
		if b[0] == 0x00 {
			return buf, nil
		}
		buf = append(buf, b[0])
		if len(buf) > maxHandshakeSize {
			return nil, fmt.Errorf("testsupport: handshake message too large")
		}
	}
}

func writeNullTerminated(w io.Writer, data []byte) error {
	out := append(append([]byte{}, data...), 0x00)
	_, err := w.Write(out)
	return err
}

// Handler answers a decoded query frame with a raw response payload.
// ok reports whether the server should keep serving further frames on this
// connection; returning false ends the fake server's serve loop.
type Handler func(token uint64, payload []byte) (response []byte, ok bool)

// FakeServer is the server side of an in-process RethinkDB connection.
type FakeServer struct {
	User, Password string
	Handle         Handler
}

// Serve performs the V1_0/SCRAM handshake over rw as the server and then
// answers queries via Handle until the handler signals completion or rw
// returns an error. Intended to run in its own goroutine.
func (f *FakeServer) Serve(t *testing.T, rw io.ReadWriter) {
	t.Helper()

	if err := f.handshake(rw); err != nil {
		t.Errorf("testsupport: fake server handshake: %v", err)
		return
	}

	for {
		token, payload, err := wire.ReadResponse(rw)
		if err != nil {
			return
		}
		if f.Handle == nil {
			return
		}
		resp, ok := f.Handle(token, payload)
		if resp != nil {
			if err := wire.WriteQuery(rw, token, resp); err != nil {
				t.Errorf("testsupport: fake server write: %v", err)
				return
			}
		}
		if !ok {
			return
		}
	}
}

func (f *FakeServer) handshake(rw io.ReadWriter) error {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(rw, magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	want := make([]byte, 4)
	binary.LittleEndian.PutUint32(want, uint32(proto.V1_0))
	if !bytes.Equal(magic, want) {
		return fmt.Errorf("unexpected magic: %x", magic)
	}

	step3, err := readNullTerminated(rw)
	if err != nil {
		return fmt.Errorf("read step3: %w", err)
	}
	var req struct {
		ProtocolVersion      int    `json:"protocol_version"`
		AuthenticationMethod string `json:"authentication_method"`
		Authentication       string `json:"authentication"`
	}
	if err := json.Unmarshal(step3, &req); err != nil {
		return fmt.Errorf("parse step3: %w", err)
	}

	step2, _ := json.Marshal(map[string]interface{}{
		"success": true, "min_protocol_version": 0, "max_protocol_version": 0, "server_version": "2.4.4",
	})
	if err := writeNullTerminated(rw, step2); err != nil {
		return fmt.Errorf("write step2: %w", err)
	}

	clientFirstBare := strings.TrimPrefix(req.Authentication, "n,,")
	var clientNonce string
	for _, part := range strings.Split(clientFirstBare, ",") {
		if strings.HasPrefix(part, "r=") {
			clientNonce = strings.TrimPrefix(part, "r=")
		}
	}
	salt := []byte("testsupportsalt1")
	iter := 4096
	combinedNonce := clientNonce + "FAKESERVER"
	serverFirstMsg := fmt.Sprintf("r=%s,s=%s,i=%d", combinedNonce, base64.StdEncoding.EncodeToString(salt), iter)

	step4, _ := json.Marshal(map[string]interface{}{"success": true, "authentication": serverFirstMsg})
	if err := writeNullTerminated(rw, step4); err != nil {
		return fmt.Errorf("write step4: %w", err)
	}

	step5, err := readNullTerminated(rw)
	if err != nil {
		return fmt.Errorf("read step5: %w", err)
	}
	var req5 struct {
		Authentication string `json:"authentication"`
	}
	if err := json.Unmarshal(step5, &req5); err != nil {
		return fmt.Errorf("parse step5: %w", err)
	}
	pIdx := strings.LastIndex(req5.Authentication, ",p=")
	if pIdx < 0 {
		return fmt.Errorf("missing proof in client-final")
	}
	clientFinalWithoutProof := req5.Authentication[:pIdx]
	authMsg := clientFirstBare + "," + serverFirstMsg + "," + clientFinalWithoutProof

	_, serverSig := scram.ComputeProof(f.Password, salt, iter, authMsg)
	step6, _ := json.Marshal(map[string]interface{}{
		"success": true, "authentication": "v=" + base64.StdEncoding.EncodeToString(serverSig),
	})
	return writeNullTerminated(rw, step6)
}

// Pipe returns a connected client/server net.Conn pair with Serve already
// running in a background goroutine against the server side.
func Pipe(t *testing.T, f *FakeServer) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = server.Close() })
	go f.Serve(t, server)
	return client
}
