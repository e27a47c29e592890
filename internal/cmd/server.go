package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/Alia5/CONDUIT/hub"
	"github.com/Alia5/CONDUIT/internal/configpaths"
	"github.com/Alia5/CONDUIT/internal/log"
	"github.com/Alia5/CONDUIT/internal/server/feed"
	"github.com/Alia5/CONDUIT/internal/server/feed/auth"
	"github.com/Alia5/CONDUIT/internal/server/feed/handler"
	"github.com/Alia5/CONDUIT/internal/util"
	"github.com/Alia5/CONDUIT/natsbridge"
	"github.com/Alia5/CONDUIT/source"
)

const keyFileName = "conduit.key.txt"

type Server struct {
	FeedConfig        feed.ServerConfig `embed:"" prefix:"feed."`
	Profiles          string            `help:"Channel mapping profile file (json/yaml/toml)" env:"CONDUIT_PROFILES"`
	Families          []string          `help:"Restrict adapted source families (default: all registered)" env:"CONDUIT_FAMILIES"`
	NatsURL           string            `name:"nats-url" help:"Publish events to this NATS server (empty disables)" env:"CONDUIT_NATS_URL"`
	NatsPrefix        string            `name:"nats-prefix" help:"NATS subject prefix" default:"conduit.events" env:"CONDUIT_NATS_PREFIX"`
	ConnectionTimeout time.Duration     `help:"Connection operation timeout" default:"30s" env:"CONDUIT_CONNECTION_TIMEOUT"`
}

// Run is called by Kong when the server command is executed.
func (s *Server) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger, rawLogger)
}

func (s *Server) StartServer(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	s.FeedConfig.ConnectionTimeout = s.ConnectionTimeout

	logger.Info("Starting CONDUIT feed server", "addr", s.FeedConfig.Addr)

	keyFileDir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("failed to resolve key file path: %w", err)
	}
	keyFilePath := path.Join(keyFileDir, keyFileName)
	if pwd, err := os.ReadFile(keyFilePath); err == nil {
		s.FeedConfig.Password = strings.TrimSpace(string(pwd))
	} else {
		newPwd, err := auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate new feed key: %w", err)
		}
		if err := os.MkdirAll(keyFileDir, 0o700); err != nil {
			return fmt.Errorf("failed to create config dir for key file: %w", err)
		}
		if err := os.WriteFile(keyFilePath, []byte(newPwd), 0o600); err != nil {
			return fmt.Errorf("failed to write new feed key to file: %w", err)
		}
		s.FeedConfig.Password = newPwd
		logger.Info("Generated feed server key", "path", keyFilePath)
		logger.Info("-------------------------------------")
		logger.Info("Your CONDUIT feed server key is:")
		logger.Info("-------------------------------------")
		logger.Info(newPwd)
		logger.Info("-------------------------------------")
		logger.Info("You can change this key at any time by editing the file")
	}

	if s.FeedConfig.Addr == "" {
		logger.Error("Feed server address must be set (default :3250).")
		return fmt.Errorf("feed server address must be set (default :3250)")
	}

	profiles, err := loadProfiles(s.Profiles, logger)
	if err != nil {
		return err
	}

	hubCfg := hub.Config{}
	for _, f := range s.Families {
		hubCfg.Families = append(hubCfg.Families, source.Family(f))
	}
	h := newPipelineHub(hubCfg, profiles, logger)

	if s.NatsURL != "" {
		bridge, err := natsbridge.Connect(natsbridge.Config{URL: s.NatsURL, Prefix: s.NatsPrefix}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect NATS sink: %w", err)
		}
		defer func() { _ = bridge.Close() }()
		reg := h.AttachSink(bridge)
		defer reg.Close()
	}

	feedSrv := feed.New(h, s.FeedConfig, logger, rawLogger)
	RegisterRoutes(feedSrv)

	if err := feedSrv.Start(); err != nil {
		logger.Error("failed to start feed server", "error", err)
		if util.IsRunFromGUI() {
			fmt.Println("Press any key to exit...")
			var b []byte = make([]byte, 1)
			_, _ = os.Stdin.Read(b)
		}
		return err
	}

	if util.IsRunFromGUI() {
		go (func() {
			time.Sleep(250 * time.Millisecond)
			util.HideConsoleWindow()
		})()
	}

	<-ctx.Done()
	feedSrv.Close()
	return nil
}

// RegisterRoutes wires every feed route. The list is shared with the e2e
// helpers so tests run the production surface.
func RegisterRoutes(s *feed.Server) {
	r := s.Router()
	r.Register("ping", handler.Ping())
	r.Register("families/list", handler.FamiliesList())
	r.Register("source/add", handler.SourceAdd(s))
	r.Register("source/{id}/remove", handler.SourceRemove(s))
	r.Register("sources/list", handler.SourcesList(s))
	r.RegisterStream("source/{id}/stream", handler.SourceStream(s))
	r.RegisterStream("events/stream", handler.EventsStream(s))
}
