// Command watch follows one or more food maze sessions over the server's
// websocket and redraws the board in the terminal after every update.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/foodmaze/game/engine"
	mazews "github.com/wricardo/foodmaze/transport/websocket"
)

var (
	styleHeading  = color.Style{color.FgCyan, color.OpBold}
	styleComplete = color.Style{color.FgGreen, color.OpBold}
)

// watcher renders the sessions it follows to out, one board at a time
type watcher struct {
	baseURL        *url.URL
	httpClient     *http.Client
	out            io.Writer
	exitOnComplete bool

	mu sync.Mutex
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "follow food maze sessions live",
		ArgsUsage: "<session-id> [session-id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("FOODMAZE_URL")},
			&cli.BoolFlag{Name: "exit-on-complete", Usage: "stop following a session once its level is complete"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable coloured output"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("no-color") {
				color.Enable = false
			}
			log.SetOutput(cmd.ErrWriter)
			return ctx, nil
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return errors.New("at least one session id is required")
	}

	base, err := url.Parse(cmd.String("url"))
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	w := &watcher{
		baseURL:        base,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		out:            cmd.Writer,
		exitOnComplete: cmd.Bool("exit-on-complete"),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.watch(ctx, id); err != nil {
				errs[i] = fmt.Errorf("session %s: %w", id, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// watch prints the current state of sessionID, then every pushed update
// until ctx ends or the connection closes
func (w *watcher) watch(ctx context.Context, sessionID string) error {
	snap, err := w.fetchState(ctx, sessionID)
	if err != nil {
		return err
	}
	w.render(sessionID, snap)
	if w.exitOnComplete && snap.Complete {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.wsURL(sessionID), nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	log.WithField("session", sessionID).Debug("websocket connected")

	// unblock ReadMessage on cancellation
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg mazews.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Warn("ignoring malformed websocket message")
			continue
		}
		if msg.Snapshot == nil {
			w.println(fmt.Sprintf("[%s] %s", sessionID, msg.Event))
			continue
		}

		w.render(sessionID, msg.Snapshot)
		if w.exitOnComplete && msg.Snapshot.Complete {
			return nil
		}
	}
}

func (w *watcher) fetchState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	u := w.baseURL.JoinPath("api", "sessions", sessionID, "state")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, errors.New(apiErr.Error)
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var snap engine.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &snap, nil
}

// wsURL maps the server URL onto its /ws endpoint for sessionID
func (w *watcher) wsURL(sessionID string) string {
	u := *w.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"session": {sessionID}}.Encode()
	return u.String()
}

func (w *watcher) render(sessionID string, snap *engine.Snapshot) {
	var b strings.Builder
	collected := snap.FoodTotal - len(snap.Food)
	b.WriteString(styleHeading.Sprintf("[%s] %s  moves %d  food %d/%d", sessionID, snap.Level, snap.Moves, collected, snap.FoodTotal))
	b.WriteString("\n")
	b.WriteString(engine.RenderSnapshot(snap))
	if snap.Complete {
		b.WriteString(styleComplete.Sprint("level complete"))
		b.WriteString("\n")
	}
	w.println(b.String())
}

func (w *watcher) println(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, s)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
