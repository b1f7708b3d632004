package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/syncbeats/server/internal/client"
	"github.com/syncbeats/server/internal/client/player"
	"github.com/syncbeats/server/internal/protocol"
	"github.com/syncbeats/server/pkg/ctxlogger"
	"github.com/syncbeats/server/pkg/ytmedia"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	serverURL = configVar[string]{
		envKey:       "SYNCBEATS_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "ws://localhost:3001/api/v1/ws",
	}
	displayName = configVar[string]{
		envKey:       "SYNCBEATS_NAME",
		flagKey:      "name",
		defaultValue: "Listener",
	}
	roomCode = configVar[string]{
		envKey:       "SYNCBEATS_ROOM",
		flagKey:      "room",
		defaultValue: "",
	}
	autoQueue = configVar[bool]{
		envKey:       "SYNCBEATS_AUTO_QUEUE",
		flagKey:      "auto-queue",
		defaultValue: false,
	}
	repeat = configVar[bool]{
		envKey:       "SYNCBEATS_REPEAT",
		flagKey:      "repeat",
		defaultValue: false,
	}
	logLevel = configVar[string]{
		envKey:       "SYNCBEATS_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "WARN",
	}
	ytDlpPath = configVar[string]{
		envKey:       "SYNCBEATS_YTDLP_PATH",
		flagKey:      "ytdlp-path",
		defaultValue: "yt-dlp",
	}
)

type clientConfig struct {
	ServerURL   string
	DisplayName string
	RoomCode    string
	AutoQueue   bool
	Repeat      bool
	LogLevel    slog.Level
	YtDlpPath   string
}

func bind[T any](v configVar[T]) {
	viper.BindEnv(v.flagKey, v.envKey)
	viper.SetDefault(v.flagKey, v.defaultValue)
}

func loadConfig() (*clientConfig, error) {
	pflag.String(serverURL.flagKey, serverURL.defaultValue, "Websocket endpoint of the server")
	pflag.String(displayName.flagKey, displayName.defaultValue, "Display name in the room")
	pflag.String(roomCode.flagKey, roomCode.defaultValue, "Room code to join, empty creates a room")
	pflag.Bool(autoQueue.flagKey, autoQueue.defaultValue, "Enable auto-queue in a created room")
	pflag.Bool(repeat.flagKey, repeat.defaultValue, "Enable repeat in a created room")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(ytDlpPath.flagKey, ytDlpPath.defaultValue, "Path of the yt-dlp binary")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	bind(serverURL)
	bind(displayName)
	bind(roomCode)
	bind(autoQueue)
	bind(repeat)
	bind(logLevel)
	bind(ytDlpPath)

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(viper.GetString(logLevel.flagKey)))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := &clientConfig{
		ServerURL:   viper.GetString(serverURL.flagKey),
		DisplayName: viper.GetString(displayName.flagKey),
		RoomCode:    viper.GetString(roomCode.flagKey),
		AutoQueue:   viper.GetBool(autoQueue.flagKey),
		Repeat:      viper.GetBool(repeat.flagKey),
		LogLevel:    level,
		YtDlpPath:   viper.GetString(ytDlpPath.flagKey),
	}
	if cfg.DisplayName == "" {
		return nil, fmt.Errorf("name must not be empty")
	}

	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(ctxlogger.ContextHandler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}),
	})
	slog.SetDefault(logger)

	var c *client.Client
	connected := make(chan struct{}, 1)
	c = client.New(&client.Config{
		ServerURL: cfg.ServerURL,
		Player:    player.NewClockPlayer(nil),
		Media:     ytmedia.NewClient(&ytmedia.Config{YtDlpPath: cfg.YtDlpPath}),
		Logger:    logger,
		OnEvent: func(e client.Event) {
			printEvent(os.Stdout, e)
			switch e.Type {
			case client.Connected:
				select {
				case connected <- struct{}{}:
				default:
				}
			case protocol.RoomCreated:
				applySettings(ctx, c, cfg)
			}
		},
	})

	go func() {
		if err := c.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("client stopped", "error", err)
		}
		stop()
	}()

	select {
	case <-ctx.Done():
		return
	case <-connected:
	}

	if err := enterRoom(ctx, c, cfg); err != nil {
		log.Fatal(err)
	}

	r := &repl{client: c, out: os.Stdout, cfg: cfg}
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line := <-lines:
			if quit := r.exec(ctx, line); quit {
				return
			}
		}
	}
}

func enterRoom(ctx context.Context, c *client.Client, cfg *clientConfig) error {
	if cfg.RoomCode != "" {
		return c.JoinRoom(ctx, cfg.RoomCode, cfg.DisplayName)
	}

	return c.CreateRoom(ctx, cfg.DisplayName)
}

// applySettings sends the room settings requested by flags.
func applySettings(ctx context.Context, c *client.Client, cfg *clientConfig) {
	if cfg.AutoQueue {
		if err := c.SetAutoQueue(ctx, true); err != nil {
			slog.WarnContext(ctx, "failed to enable auto queue", "error", err)
		}
	}
	if cfg.Repeat {
		if err := c.SetRepeat(ctx, true); err != nil {
			slog.WarnContext(ctx, "failed to enable repeat", "error", err)
		}
	}
}

func printEvent(w io.Writer, e client.Event) {
	if e.Message == "" {
		fmt.Fprintf(w, "[%s]\n", e.Type)
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", e.Type, e.Message)
}

type repl struct {
	client  *client.Client
	out     io.Writer
	cfg     *clientConfig
	results []ytmedia.SearchResult
}

const help = `commands:
  add <url|id>        add a video
  search <query>      search, then "pick <n>" to add a result
  remove <n>          remove the track at position n
  move <from> <to>    move a track
  play | pause | next | prev | jump <n> | ended
  repeat on|off | autoqueue on|off
  sync | queue | users | leave | join <code> | create | quit`

// exec runs one command line and reports whether to quit.
func (r *repl) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd, args := fields[0], fields[1:]
	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(r.out, help)
	case "add":
		err = needArgs(args, 1, func() error { return r.client.AddByURL(ctx, args[0]) })
	case "search":
		err = needArgs(args, 1, func() error { return r.search(ctx, strings.Join(args, " ")) })
	case "pick":
		err = withIndex(args, 0, func(n int) error {
			if n >= len(r.results) {
				return fmt.Errorf("no search result %d", n+1)
			}
			return r.client.AddSearchResult(ctx, r.results[n])
		})
	case "remove":
		err = withIndex(args, 0, func(n int) error {
			queue := r.client.Room().Queue
			if n >= len(queue) {
				return fmt.Errorf("no track %d", n+1)
			}
			return r.client.RemoveSong(ctx, queue[n].ID)
		})
	case "move":
		err = withIndex(args, 0, func(from int) error {
			return withIndex(args, 1, func(to int) error { return r.client.MoveTrack(ctx, from, to) })
		})
	case "play":
		err = r.client.Play(ctx)
	case "pause":
		err = r.client.Pause(ctx)
	case "next":
		err = r.client.Next(ctx)
	case "prev":
		err = r.client.Prev(ctx)
	case "jump":
		err = withIndex(args, 0, func(n int) error { return r.client.PlayAt(ctx, n) })
	case "ended":
		err = r.client.SongEnded(ctx)
	case "repeat":
		err = withToggle(args, func(on bool) error { return r.client.SetRepeat(ctx, on) })
	case "autoqueue":
		err = withToggle(args, func(on bool) error { return r.client.SetAutoQueue(ctx, on) })
	case "sync":
		err = r.client.RequestSync(ctx)
	case "queue":
		r.printQueue()
	case "users":
		for _, user := range r.client.Room().Users {
			host := ""
			if user.IsHost {
				host = " (host)"
			}
			fmt.Fprintf(r.out, "  %s%s\n", user.DisplayName, host)
		}
	case "leave":
		err = r.client.LeaveRoom(ctx)
	case "join":
		err = needArgs(args, 1, func() error { return r.client.JoinRoom(ctx, args[0], r.cfg.DisplayName) })
	case "create":
		err = r.client.CreateRoom(ctx, r.cfg.DisplayName)
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}

	if err != nil {
		fmt.Fprintf(r.out, "error: %s\n", err)
	}
	return false
}

func (r *repl) search(ctx context.Context, query string) error {
	results, err := r.client.Search(ctx, query)
	if err != nil {
		return err
	}

	r.results = results
	for i, result := range results {
		seconds := int(result.DurationSeconds)
		fmt.Fprintf(r.out, "  %d. %s - %s (%d:%02d)\n", i+1, result.Title, result.Author, seconds/60, seconds%60)
	}
	return nil
}

func (r *repl) printQueue() {
	room := r.client.Room()
	fmt.Fprintf(r.out, "room %s, repeat %t, auto-queue %t\n", room.RoomCode, room.Repeat, room.AutoQueue)
	for i, track := range room.Queue {
		marker := " "
		if i == room.CurrentIndex {
			marker = ">"
		}
		fmt.Fprintf(r.out, "%s %d. %s (added by %s)\n", marker, i+1, track.Title, track.AddedBy)
	}
}

func needArgs(args []string, n int, fn func() error) error {
	if len(args) < n {
		return fmt.Errorf("expected %d argument(s)", n)
	}
	return fn()
}

// withIndex parses the 1-based position at args[i].
func withIndex(args []string, i int, fn func(int) error) error {
	if len(args) <= i {
		return fmt.Errorf("missing position")
	}

	n, err := strconv.Atoi(args[i])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid position %q", args[i])
	}
	return fn(n - 1)
}

func withToggle(args []string, fn func(bool) error) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return fmt.Errorf("expected on or off")
	}
	return fn(args[0] == "on")
}
