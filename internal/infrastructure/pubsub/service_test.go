package pubsub_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	"github.com/tdex-network/nftswap-daemon/internal/infrastructure/pubsub"
)

const (
	testSecret  = "secret"
	testMessage = `{"event":"settled","swap_id":1}`
)

type received struct {
	path    string
	body    string
	subject string
}

type testWebServer struct {
	*httptest.Server

	lock     sync.Mutex
	received []received
}

func newTestWebServer() *testWebServer {
	s := &testWebServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *testWebServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/failing" {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	var subject string
	if auth := r.Header.Get("Authorization"); len(auth) > 0 {
		claims := &jwt.StandardClaims{}
		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(auth, "Bearer "), claims,
			func(t *jwt.Token) (interface{}, error) {
				return []byte(testSecret), nil
			},
		)
		if err != nil || !token.Valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		subject = claims.Subject
	}

	body, _ := io.ReadAll(r.Body)

	s.lock.Lock()
	s.received = append(s.received, received{r.URL.Path, string(body), subject})
	s.lock.Unlock()
}

func (s *testWebServer) pathsReceived() []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	paths := make([]string, 0, len(s.received))
	for _, r := range s.received {
		paths = append(paths, r.path)
	}
	return paths
}

func newTestService(t *testing.T) ports.PubSub {
	logger := log.New()
	logger.SetLevel(log.WarnLevel)

	svc, err := pubsub.NewService("", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		//nolint
		svc.Close()
	})
	return svc
}

func TestSubscribe(t *testing.T) {
	svc := newTestService(t)

	t.Run("valid", func(t *testing.T) {
		settledID, err := svc.Subscribe("settled", "http://localhost/settled", "")
		require.NoError(t, err)
		require.NotEmpty(t, settledID)

		anyID, err := svc.Subscribe(ports.AnyTopic, "https://localhost/any", testSecret)
		require.NoError(t, err)

		_, err = svc.Subscribe("expired", "http://localhost/expired", "")
		require.NoError(t, err)

		subs, err := svc.ListSubscriptionsForTopic("settled")
		require.NoError(t, err)
		require.Len(t, subs, 2)
		ids := []string{subs[0].Id(), subs[1].Id()}
		require.ElementsMatch(t, []string{settledID, anyID}, ids)

		subs, err = svc.ListSubscriptionsForTopic(ports.AnyTopic)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		require.True(t, subs[0].IsSecured())
		require.Equal(t, "https://localhost/any", subs[0].NotifyAt())

		subs, err = svc.ListSubscriptionsForTopic(ports.UnspecifiedTopic)
		require.NoError(t, err)
		require.Len(t, subs, 3)

		require.NoError(t, svc.Unsubscribe(settledID))
		subs, err = svc.ListSubscriptionsForTopic("settled")
		require.NoError(t, err)
		require.Len(t, subs, 1)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name     string
			topic    string
			endpoint string
			err      error
		}{
			{"missing topic", "", "http://localhost", pubsub.ErrMissingTopic},
			{"missing endpoint", "settled", "", pubsub.ErrInvalidEndpoint},
			{"relative endpoint", "settled", "localhost/hook", pubsub.ErrInvalidEndpoint},
			{"unsupported scheme", "settled", "ftp://localhost/hook", pubsub.ErrInvalidEndpoint},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Subscribe(tt.topic, tt.endpoint, "")
				require.ErrorIs(t, err, tt.err)
			})
		}

		err := svc.Unsubscribe("unknown")
		require.ErrorIs(t, err, pubsub.ErrSubscriptionNotFound)
	})
}

func TestPublish(t *testing.T) {
	server := newTestWebServer()
	defer server.Close()

	svc := newTestService(t)

	endpoint := func(path string) string {
		return fmt.Sprintf("%s/%s", server.URL, path)
	}

	_, err := svc.Subscribe("settled", endpoint("settled"), "")
	require.NoError(t, err)
	_, err = svc.Subscribe(ports.AnyTopic, endpoint("any"), testSecret)
	require.NoError(t, err)
	_, err = svc.Subscribe("expired", endpoint("expired"), "")
	require.NoError(t, err)

	err = svc.Publish("settled", testMessage)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"/settled", "/any"}, server.pathsReceived())

	server.lock.Lock()
	for _, r := range server.received {
		require.Equal(t, testMessage, r.body)
		if r.path == "/any" {
			require.Equal(t, ports.AnyTopic, r.subject)
		}
	}
	server.lock.Unlock()

	t.Run("failing endpoint", func(t *testing.T) {
		failingID, err := svc.Subscribe("cancelled", endpoint("failing"), "")
		require.NoError(t, err)
		defer svc.Unsubscribe(failingID)

		err = svc.Publish("cancelled", testMessage)
		require.Error(t, err)
		require.Contains(t, server.pathsReceived(), "/any")
	})
}
