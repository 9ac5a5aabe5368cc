package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dyluth/tablenode/internal/config"
	"github.com/dyluth/tablenode/internal/link"
	"github.com/dyluth/tablenode/internal/node"
	"github.com/dyluth/tablenode/internal/printer"
	"github.com/dyluth/tablenode/pkg/payload"
)

var (
	version string
	commit  string
	date    string

	configPath string
	transport  string
	broker     string
	redisURL   string
	namespace  string
	format     string
	timeout    time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tablectl",
	Short: "tablectl - operate table nodes over the message broker",
	Long: `tablectl sends display text, tone sequences and turn signals to table
nodes and watches the events they publish (button presses, liveness beacons).

Connection settings come from a tablenode.yml (--config) so the CLI talks on
exactly the topics the node listens to; flags override individual settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Node configuration file providing topics and link settings")
	flags.StringVar(&transport, "transport", "", "Link transport: mqtt or redis")
	flags.StringVar(&broker, "broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	flags.StringVar(&redisURL, "redis-url", "", "Redis URL, e.g. redis://localhost:6379")
	flags.StringVar(&namespace, "namespace", "", "Redis channel namespace")
	flags.StringVar(&format, "format", "", "Payload format: json or cbor")
	flags.DurationVar(&timeout, "timeout", 5*time.Second, "Connect and publish timeout")
}

// loadSettings resolves the node configuration the CLI acts on: the
// --config file or defaults, then environment, then flags.
func loadSettings() (*config.NodeConfig, error) {
	var cfg *config.NodeConfig
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Parse([]byte(`version: "1.0"`), os.Getenv)
	}
	if err != nil {
		return nil, err
	}

	cfg.Node.ClientID = "tablectl-" + uuid.NewString()[:8]
	if transport != "" {
		cfg.Link.Transport = transport
	}
	if broker != "" {
		cfg.Link.Broker = broker
	}
	if redisURL != "" {
		cfg.Link.RedisURL = redisURL
	}
	if namespace != "" {
		cfg.Link.Namespace = namespace
	}
	if format != "" {
		cfg.Payload.Format = format
	}
	cfg.Link.ConnectTimeout = timeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is a connected link plus the settings it was built from.
type session struct {
	cfg   *config.NodeConfig
	link  link.Link
	codec payload.Codec
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, printer.Error("invalid settings", err.Error(),
			[]string{"Check the --config file with: tablectl validate <file>"})
	}

	codec, err := payload.NewCodec(cfg.Payload.Format)
	if err != nil {
		return nil, err
	}

	l, err := node.NewLink(cfg)
	if err != nil {
		return nil, printer.Error("invalid link settings", err.Error(), nil)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Link.ConnectTimeout)
	defer cancel()
	if err := l.Connect(connectCtx); err != nil {
		l.Close()
		return nil, printer.ErrorWithContext(
			"cannot reach the broker",
			err.Error(),
			map[string]string{
				"transport": cfg.Link.Transport,
				"endpoint":  endpoint(cfg),
			},
			[]string{"Start the broker, or point --broker / --redis-url at a running one"},
		)
	}

	return &session{cfg: cfg, link: l, codec: codec}, nil
}

func endpoint(cfg *config.NodeConfig) string {
	if cfg.Link.Transport == "redis" {
		return cfg.Link.RedisURL
	}
	return cfg.Link.Broker
}

func (s *session) publish(ctx context.Context, topic string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, s.cfg.Link.ConnectTimeout)
	defer cancel()
	if err := s.link.Publish(pubCtx, topic, body); err != nil {
		return printer.Error("publish failed", err.Error(), nil)
	}
	return nil
}

func (s *session) Close() error {
	return s.link.Close()
}
