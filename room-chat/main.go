package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gosuda/room-chat/chat"
	"github.com/gosuda/room-chat/transport"
)

var rootCmd = &cobra.Command{
	Use:   "room-chat",
	Short: "Terminal chat client: join a room and talk",
	RunE:  runClient,
}

var (
	flagServerURL   string
	flagUsername    string
	flagRoom        string
	flagLogFile     string
	flagLogLevel    string
	flagDialTimeout time.Duration
	flagSendBuffer  int
)

func init() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServerURL, "server-url", envOr("ROOM_CHAT_SERVER", "ws://localhost:5000/ws"), "room server websocket URL (env ROOM_CHAT_SERVER)")
	flags.StringVar(&flagUsername, "username", os.Getenv("ROOM_CHAT_USERNAME"), "prefill the username field")
	flags.StringVar(&flagRoom, "room", "", "prefill the room id field")
	flags.StringVar(&flagLogFile, "log-file", os.Getenv("ROOM_CHAT_LOG_FILE"), "write logs to this file (rotated); empty disables logging")
	flags.StringVar(&flagLogLevel, "log-level", envOr("ROOM_CHAT_LOG_LEVEL", "info"), "log level (trace, debug, info, warn, error)")
	flags.DurationVar(&flagDialTimeout, "dial-timeout", 10*time.Second, "timeout for the initial websocket handshake")
	flags.IntVar(&flagSendBuffer, "send-buffer", 64, "outbound frames queued before a send is dropped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute room-chat command")
	}
}

// setupLogging points the global logger at a rotating file. The terminal
// belongs to the UI, so without a file logs are dropped.
func setupLogging(path, level string) (io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if path == "" {
		log.Logger = zerolog.Nop()
		return nil, nil
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
	}
	log.Logger = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return w, nil
}

func runClient(cmd *cobra.Command, args []string) error {
	closer, err := setupLogging(flagLogFile, flagLogLevel)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flagDialTimeout)
	conn, err := transport.Dial(ctx, flagServerURL,
		transport.WithDialer(&websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: flagDialTimeout,
		}),
		transport.WithHeader(http.Header{"User-Agent": []string{"room-chat"}}),
		transport.WithSendBuffer(flagSendBuffer),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to %s: %w", flagServerURL, err)
	}
	defer conn.Close()

	go func() {
		<-conn.Done()
		log.Warn().Str("url", flagServerURL).Msg("[chat] connection closed")
	}()

	a := newApp(conn, chat.NewSessionStore(), flagUsername, flagRoom)
	p := tea.NewProgram(a, tea.WithAltScreen())
	a.attach(p.Send)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	log.Info().Msg("[chat] shutdown complete")
	return nil
}
