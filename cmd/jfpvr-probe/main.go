// SPDX-License-Identifier: MIT

// jfpvr-probe authenticates against a Jellyfin server with the configured
// method, loads the live-TV universe and prints a JSON report. Useful for
// checking credentials and server reachability outside a host player.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jfpvr/jfpvr/internal/config"
	"github.com/jfpvr/jfpvr/internal/jellyfin"
	"github.com/jfpvr/jfpvr/internal/log"
	"github.com/jfpvr/jfpvr/internal/pvr"
)

type report struct {
	Timestamp     time.Time `json:"timestamp"`
	ServerURL     string    `json:"server_url"`
	ServerName    string    `json:"server_name"`
	ServerVersion string    `json:"server_version"`
	Channels      int       `json:"channels"`
	Groups        int       `json:"groups"`
	Recordings    int       `json:"recordings"`
	Timers        int       `json:"timers"`
	StreamURL     string    `json:"stream_url,omitempty"`
}

var (
	configPath = flag.String("config", "", "settings YAML file (optional, overridden by flags)")
	server     = flag.String("server", "", "server address")
	port       = flag.Int("port", 0, "server port (0 keeps the config/default value)")
	useHTTPS   = flag.Bool("https", false, "use https")
	authMethod = flag.String("auth", "", "auth method: password, quickconnect or apikey")
	username   = flag.String("username", "", "username for password auth")
	password   = flag.String("password", "", "password for password auth")
	apiKey     = flag.String("api-key", "", "static api key")
	userID     = flag.String("user-id", "", "user id for api key auth")
	channel    = flag.String("resolve-channel", "", "also resolve a live stream for the named channel")
	saveTo     = flag.String("save", "", "persist settings with acquired credentials to this file")
	timeout    = flag.Duration("timeout", 5*time.Minute, "overall probe timeout")
)

func main() {
	flag.Parse()
	log.Configure(log.Config{Service: "jfpvr-probe"})

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn := pvr.New(settings, jellyfin.RealClock{})
	if err := conn.Connect(ctx); err != nil {
		return err
	}

	rep := report{
		Timestamp:     time.Now().UTC(),
		ServerURL:     conn.ConnectionString(),
		ServerName:    conn.Hostname(),
		ServerVersion: conn.ServerVersion(),
	}
	if rep.Channels, err = conn.ChannelCount(); err != nil {
		return err
	}
	if rep.Groups, err = conn.GroupCount(); err != nil {
		return err
	}
	if rep.Recordings, err = conn.RecordingCount(ctx); err != nil {
		return err
	}
	if rep.Timers, err = conn.TimerCount(ctx); err != nil {
		return err
	}

	if *channel != "" {
		s, err := resolveByName(ctx, conn, *channel)
		if err != nil {
			return err
		}
		rep.StreamURL = s
	}

	if *saveTo != "" {
		if err := config.Save(*saveTo, conn.UpdatedSettings()); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func resolveByName(ctx context.Context, conn *pvr.Connector, name string) (string, error) {
	channels, err := conn.Channels(false)
	if err != nil {
		return "", err
	}
	for _, ch := range channels {
		if ch.Name == name {
			s, err := conn.ChannelStream(ctx, ch.Handle)
			if err != nil {
				return "", err
			}
			return s.URL, nil
		}
	}
	return "", fmt.Errorf("channel %q not found", name)
}

// loadSettings layers configuration: YAML file, then environment, then
// flags, most specific last.
func loadSettings() (config.Settings, error) {
	settings := config.FromEnv()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Settings{}, err
		}
		settings = loaded
	}

	if *server != "" {
		settings.ServerAddress = *server
	}
	if *port != 0 {
		settings.ServerPort = *port
	}
	if *useHTTPS {
		settings.UseHTTPS = true
	}
	if *authMethod != "" {
		m, err := config.ParseAuthMethod(*authMethod)
		if err != nil {
			return config.Settings{}, err
		}
		settings.AuthMethod = m
	}
	if *username != "" {
		settings.Username = *username
	}
	if *password != "" {
		settings.Password = *password
	}
	if *apiKey != "" {
		settings.APIKey = *apiKey
	}
	if *userID != "" {
		settings.UserID = *userID
	}
	return settings, nil
}
