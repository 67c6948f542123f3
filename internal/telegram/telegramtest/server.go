// Package telegramtest fakes the Bot API so handlers can run against a real *bot.Bot.
package telegramtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/require"
)

// Call is one Bot API request captured by the fake server.
type Call struct {
	Method string
	Params map[string]string
}

type Server struct {
	mu    sync.Mutex
	calls []Call
}

// New starts a fake Bot API and returns a bot wired to it.
func New(t *testing.T) (*Server, *bot.Bot) {
	t.Helper()

	s := &Server{}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test", bot.WithSkipGetMe(), bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	return s, b
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	params := map[string]string{}
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			params[k] = v[0]
		}
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Params: params})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "answerCallbackQuery":
		w.Write([]byte(`{"ok":true,"result":true}`))
	default:
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
	}
}

// Calls returns every captured request, oldest first.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Last returns the latest call to method.
func (s *Server) Last(method string) (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].Method == method {
			return s.calls[i], true
		}
	}
	return Call{}, false
}

func (s *Server) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}
