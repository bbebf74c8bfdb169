package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/PaulBabatuyi/marketchat/internal/auth"
	"github.com/PaulBabatuyi/marketchat/internal/client"
	"github.com/PaulBabatuyi/marketchat/internal/inbox"
	"github.com/PaulBabatuyi/marketchat/internal/logging"
)

const envPrefix = "MARKETCHAT"

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to buyers and sellers from the terminal",
	Long: `chat lists your marketplace conversations, opens a thread for live
chatting and shows your notifications.

Settings come from flags, MARKETCHAT_* environment variables or
~/.config/marketchat/config.yaml, in that order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addSettingsFlags(rootCmd)
}

func addSettingsFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("addr", "localhost:50051", "messaging service address")
	flags.String("token", "", "access token issued by the auth service")
	flags.Bool("tls", false, "connect with TLS")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	flags.Int("directory-concurrency", inbox.DefaultDirectoryConcurrency, "parallel per-thread lookups when listing threads")
	flags.Int("notification-limit", inbox.DefaultNotificationLimit, "notifications to load")
}

type settings struct {
	Addr                 string `mapstructure:"addr"`
	Token                string `mapstructure:"token"`
	TLS                  bool   `mapstructure:"tls"`
	LogLevel             string `mapstructure:"log-level"`
	DirectoryConcurrency int    `mapstructure:"directory-concurrency"`
	NotificationLimit    int    `mapstructure:"notification-limit"`
}

// loadSettings resolves cmd's flags against the environment and the optional
// config file.
func loadSettings(cmd *cobra.Command) (settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "marketchat"))
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return settings{}, fmt.Errorf("bind flags: %w", err)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.Token == "" {
		return settings{}, errors.New("no access token: pass --token or set MARKETCHAT_TOKEN")
	}
	return s, nil
}

// session is one signed-in connection to the messaging service.
type session struct {
	settings settings
	userID   string
	client   *client.Client
	conn     *grpc.ClientConn
	log      zerolog.Logger
}

func openSession(cmd *cobra.Command) (*session, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	log := logging.Init(logging.Config{Level: s.LogLevel, Format: "console", Output: cmd.ErrOrStderr()})

	// The server verifies the token; the client only needs to know who it is.
	claims, err := auth.ParseUnverified(s.Token)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	creds := insecure.NewCredentials()
	if s.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	c, conn, err := client.Dial(s.Addr, s.Token, creds, log)
	if err != nil {
		return nil, err
	}
	return &session{
		settings: s,
		userID:   claims.UserID,
		client:   c,
		conn:     conn,
		log:      log,
	}, nil
}

func (s *session) newView(opts inbox.Options) *inbox.View {
	opts.Logger = &s.log
	opts.DirectoryConcurrency = s.settings.DirectoryConcurrency
	return inbox.NewView(s.client, s.userID, opts)
}

func (s *session) Close() error {
	return s.conn.Close()
}
