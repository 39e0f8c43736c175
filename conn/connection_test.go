package conn

import (
	"sync"
	"testing"

	"github.com/indigo-web/ember/attr"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/transport/dummy"
	"github.com/stretchr/testify/require"
)

func TestConnection(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		session := dummy.NewSession()
		c := New(session, nil, proto.HTTP11)

		require.Equal(t, session.ID(), c.ID())
		require.False(t, c.IsEncrypted())
		require.False(t, c.IsTunnel())
		require.True(t, c.IsOpen())
		require.Equal(t, proto.HTTP11, c.Protocol())
		require.Equal(t, session.RemoteAddr(), c.RemoteAddr())
	})

	t.Run("close order", func(t *testing.T) {
		session := dummy.NewSession()
		tlsSession := dummy.NewTLSSession()

		var sessionOpenOnTLSClose bool
		tlsSession.OnClose = func() {
			sessionOpenOnTLSClose = session.IsOpen()
		}

		c := New(session, tlsSession, proto.HTTP11)
		c.Attachment().Put("user", attr.StringValue("pavlo"))
		require.True(t, c.IsEncrypted())

		require.NoError(t, c.Close())
		require.True(t, sessionOpenOnTLSClose)
		require.False(t, tlsSession.IsOpen())
		require.False(t, session.IsOpen())
		require.False(t, c.IsOpen())
		require.Zero(t, c.Attachment().Len())

		require.NoError(t, c.Close())
		require.Equal(t, 1, session.Closes())
	})

	t.Run("already closed sessions aren't closed twice", func(t *testing.T) {
		session := dummy.NewSession()
		require.NoError(t, session.Close())

		c := New(session, nil, proto.HTTP10)
		require.NoError(t, c.Close())
		require.Equal(t, 1, session.Closes())
	})
}

func TestTunnel(t *testing.T) {
	t.Run("writes go straight to the transport", func(t *testing.T) {
		session := dummy.NewSession()
		tunnel := NewTunnel(New(session, nil, proto.HTTP11))
		require.True(t, tunnel.IsTunnel())

		var dones int
		done := func(err error) {
			require.NoError(t, err)
			dones++
		}

		tunnel.Write([]byte("raw "), done)
		tunnel.WriteBuffers([][]byte{[]byte("bytes"), []byte("!")}, done)
		require.Equal(t, "raw bytes!", string(session.Written()))
		require.Equal(t, 2, dones)
	})

	t.Run("early data is kept", func(t *testing.T) {
		tunnel := NewTunnel(New(dummy.NewSession(), nil, proto.HTTP11))
		buf := []byte("early")
		tunnel.Receive(buf)
		buf[0] = 'X'

		var received []string
		tunnel.OnReceive(func(data []byte) {
			received = append(received, string(data))
		})
		tunnel.Receive([]byte("late"))
		require.Equal(t, []string{"early", "late"}, received)
	})

	t.Run("data arriving during early delivery waits for it", func(t *testing.T) {
		tunnel := NewTunnel(New(dummy.NewSession(), nil, proto.HTTP11))
		tunnel.Receive([]byte("early"))

		var (
			mu       sync.Mutex
			received []string
		)
		entered, release := make(chan struct{}), make(chan struct{})
		delivered := make(chan struct{})

		go func() {
			first := true
			tunnel.OnReceive(func(data []byte) {
				if first {
					first = false
					close(entered)
					<-release
				}

				mu.Lock()
				received = append(received, string(data))
				mu.Unlock()
			})
			close(delivered)
		}()

		<-entered
		// must not overtake the early data, nor block on the busy consumer
		tunnel.Receive([]byte("late"))
		close(release)
		<-delivered

		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []string{"early", "late"}, received)
	})

	t.Run("close callbacks", func(t *testing.T) {
		session := dummy.NewSession()
		tunnel := NewTunnel(New(session, nil, proto.HTTP11))

		var calls int
		tunnel.OnClose(func(err error) {
			require.NoError(t, err)
			calls++
		})
		tunnel.Closed(nil)
		tunnel.Closed(nil)
		require.Equal(t, 1, calls)
		require.False(t, session.IsOpen())

		tunnel.OnClose(func(error) {
			calls++
		})
		require.Equal(t, 2, calls)
	})
}
