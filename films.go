/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Film vote
//
// A host picks a list of candidate films and shares a session link. Players
// join by name and take turns eliminating films until one remains.
//
// Features:
// - WebSockets per session code: /vote/:code/ws (and /ws/:code)
// - First connection to a code becomes host and receives a host token
// - Players receive an id on join and can reconnect with it after a drop
// - Host can start the vote, reorder the roster, and kick players
// - One-by-one, fifty-fifty, and hybrid elimination styles
// - Every change is broadcast as a full, sequenced state snapshot
// - Optional idle reaping and session limit
// - QR code for the session link, backed by go-qrcode

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/filmvote/catalog"
	"github.com/Seednode/filmvote/vote"
)

var errSendBufferFull = errors.New("send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection, bound to a single session for its
// lifetime. It satisfies vote.Conn.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan any
}

func newClient(cfg *Config, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan any, cfg.sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues msg for the write pump without blocking.
func (c *Client) Send(msg any) error {
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readPump(cfg *Config, s *vote.Session) {
	defer func() {
		s.Disconnect(c)
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(cfg.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Time{})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev vote.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logf(cfg, "GAMES: Malformed message from %s in %s: %v", c.id, s.Code(), err)

			_ = c.Send(vote.ErrorMessage{Type: "error", Message: "Malformed message."})

			continue
		}

		s.Handle(c, ev)
	}
}

func (c *Client) writePump(cfg *Config) {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.sendTimeout))

		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveWS upgrades the request and binds the connection to the session
// named by :code, creating the session on first contact.
func serveWS(cfg *Config, registry *vote.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if !vote.ValidCode(code) {
			http.Error(w, "invalid session code", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := newClient(cfg, conn)

		go client.writePump(cfg)

		s, err := registry.Open(code, client)
		if err != nil {
			logf(cfg, "GAMES: Refused %s for %s: %v", realIP(r), code, err)

			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
				time.Now().Add(time.Second))
			close(client.send)

			return
		}

		logf(cfg, "GAMES: Connection %s from %s joined %s", client.id, realIP(r), code)

		client.readPump(cfg, s)

		logf(cfg, "GAMES: Connection %s left %s", client.id, code)
	}
}

// serveCatalog returns the loaded films so hosts can choose the playable subset.
func serveCatalog(cfg *Config, films *catalog.Catalog, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(films.Items()); err != nil {
			errs <- err
		}
	}
}

// sessionURL derives the public URL of a session page, respecting TLS and
// X-Forwarded-Proto if present.
func sessionURL(r *http.Request, pagePath string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + pagePath
}

// qrHandler generates a PNG QR code for the session URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !vote.ValidCode(ps.ByName("code")) {
		http.Error(w, "invalid session code", http.StatusBadRequest)
		return
	}

	// We are at /.../:code/qr; strip trailing "/qr" to get the session URL.
	url := sessionURL(r, strings.TrimSuffix(r.URL.Path, "/qr"))

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// serveSessionPage shows the session code and its QR code, plus whatever
// the registry knows about it.
func serveSessionPage(cfg *Config, registry *vote.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if !vote.ValidCode(code) {
			http.Error(w, "invalid session code", http.StatusBadRequest)
			return
		}

		status := "Waiting for the host to connect."
		if s, ok := registry.Get(code); ok {
			snap := s.Snapshot()
			switch {
			case snap.Winner != nil:
				status = "Winner: " + snap.Winner.Title
			case snap.Started:
				status = fmt.Sprintf("Voting in progress, %d films remaining.", len(snap.FilmsRemaining))
			default:
				status = fmt.Sprintf("%d players in the lobby.", len(snap.Players))
			}
		}

		body := fmt.Sprintf(`<h1>Session %s</h1><p>%s</p><img src="%s/qr" alt="QR code for this session"><p><a href="%s/">filmvote</a></p>`,
			html.EscapeString(code),
			html.EscapeString(status),
			html.EscapeString(code),
			html.EscapeString(cfg.prefix),
		)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if _, err := w.Write([]byte(newPage("Session "+code, body))); err != nil {
			errs <- err
		}
	}
}

// redirectNewGame handles GET /path by minting an unused session code and
// redirecting to /path/:code.
func redirectNewGame(cfg *Config, path string, registry *vote.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := registry.NewCode()
		logf(cfg, "GAMES: Minted session code %s for %s", code, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+code, http.StatusTemporaryRedirect)
	}
}

// registerFilmVote sets up routes so that:
//   - $path              → redirects to a new session code
//   - $path/:code        → session page
//   - $path/:code/ws     → WebSocket for that session (also /ws/:code)
//   - $path/:code/qr     → PNG QR code for the session URL
//   - /films.json        → the loaded catalog
func registerFilmVote(cfg *Config, path string, mux *httprouter.Router, registry *vote.Registry, films *catalog.Catalog, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, registry))

	mux.GET(cfg.prefix+path+"/:code", serveSessionPage(cfg, registry, errs))

	mux.GET(cfg.prefix+path+"/:code/ws", serveWS(cfg, registry))

	mux.GET(cfg.prefix+"/ws/:code", serveWS(cfg, registry))

	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler)

	mux.GET(cfg.prefix+"/films.json", serveCatalog(cfg, films, errs))
}
