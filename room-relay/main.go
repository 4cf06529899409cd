package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gosuda.org/portal/portal/core/cryptoops"
	"gosuda.org/portal/sdk"
)

var rootCmd = &cobra.Command{
	Use:   "room-relay",
	Short: "Development room server for room-chat clients",
	RunE:  runRelay,
}

var (
	flagServerURLs []string
	flagPort       int
	flagName       string
	flagDataPath   string
	flagCredKey    string
	flagBacklog    int
	flagLogLevel   string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&flagServerURLs, "server-url", strings.Split(os.Getenv("RELAY"), ","), "optional portal relay URL(s) to also serve through; repeat or comma-separated (env RELAY)")
	flags.IntVar(&flagPort, "port", 5000, "local HTTP port (negative to disable)")
	flags.StringVar(&flagName, "name", "room-relay", "backend display name on the portal relay")
	flags.StringVar(&flagDataPath, "data-path", "", "optional directory to persist room history via PebbleDB")
	flags.StringVar(&flagCredKey, "cred-key", "", "optional credential key to use for the portal listener (base64 encoded)")
	flags.IntVar(&flagBacklog, "backlog", 100, "messages kept per room and replayed on join (0 = unlimited)")
	flags.StringVar(&flagLogLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute relay command")
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	lvl, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(lvl).With().Timestamp().Logger()

	// Cancellation context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := newHub(flagBacklog)

	var store *historyStore
	if flagDataPath != "" {
		s, err := openHistoryStore(flagDataPath)
		if err != nil {
			log.Warn().Err(err).Msg("[relay] open store failed; running in memory only")
		} else {
			store = s
			h.attachStore(store)
			log.Info().Str("path", flagDataPath).Msg("[relay] persisting history")
		}
	}
	handler := NewHandler(h)

	listeners, clients, err := listenPortal()
	if err != nil {
		return err
	}
	for i, ln := range listeners {
		idx := i
		go func() {
			if err := http.Serve(ln, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
				log.Error().Err(err).Int("listener", idx).Msg("[relay] portal http error")
			}
		}()
	}

	var httpSrv *http.Server
	if flagPort >= 0 {
		httpSrv = &http.Server{Addr: fmt.Sprintf(":%d", flagPort), Handler: handler, ReadHeaderTimeout: 5 * time.Second, IdleTimeout: 60 * time.Second}
		log.Info().Msgf("[relay] serving locally at ws://127.0.0.1:%d/ws", flagPort)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn().Err(err).Msg("[relay] local http stopped")
				stop()
			}
		}()
	}
	if httpSrv == nil && len(listeners) == 0 {
		return fmt.Errorf("nothing to serve: local port disabled and no portal relay configured")
	}

	// Unified shutdown watcher
	go func() {
		<-ctx.Done()
		for _, ln := range listeners {
			_ = ln.Close()
		}
		for _, c := range clients {
			_ = c.Close()
		}
		if httpSrv != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(sctx); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("[relay] http server shutdown error")
			}
		}
	}()

	<-ctx.Done()
	h.closeAll()
	h.wait()
	if store != nil {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("[relay] store close error")
		}
	}
	log.Info().Msg("[relay] shutdown complete")
	return nil
}

// listenPortal opens one portal listener per configured relay URL.
func listenPortal() ([]net.Listener, []*sdk.RDClient, error) {
	var urls []string
	for _, raw := range flagServerURLs {
		for _, p := range strings.Split(raw, ",") {
			if u := strings.TrimSpace(p); u != "" {
				urls = append(urls, u)
			}
		}
	}
	if len(urls) == 0 {
		return nil, nil, nil
	}

	cred := sdk.NewCredential()
	if flagCredKey != "" {
		key, err := base64.StdEncoding.DecodeString(flagCredKey)
		if err != nil {
			return nil, nil, fmt.Errorf("decode cred key: %w", err)
		}
		cred2, err := cryptoops.NewCredentialFromPrivateKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("new credential from private key: %w", err)
		}
		cred = cred2
	}

	var clients []*sdk.RDClient
	var listeners []net.Listener
	for _, u := range urls {
		client, err := sdk.NewClient(func(c *sdk.RDClientConfig) { c.BootstrapServers = []string{u} })
		if err != nil {
			log.Error().Err(err).Str("url", u).Msg("[relay] new portal client failed")
			continue
		}
		clients = append(clients, client)
		ln, err := client.Listen(cred, flagName, []string{"http/1.1"})
		if err != nil {
			return nil, nil, fmt.Errorf("listen (%s): %w", u, err)
		}
		listeners = append(listeners, ln)
		log.Info().Str("url", u).Str("name", flagName).Msg("[relay] serving through portal")
	}
	return listeners, clients, nil
}
