package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clientscore/internal/model"
)

// Version is overridden at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	// set by PersistentPreRunE for every command
	cfg    *model.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "clientscore",
	Short: "Clientscore - client credit-risk records and prediction gateway",
	Long: `Clientscore loads client credit-risk records from a semicolon-delimited
table, assembles a flat feature set per client and brokers prediction
requests to an external scoring service.

It does not score clients itself. Probabilities and decisions come from
the configured scoring service and are passed through as reported.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Clientscore.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clientscore %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.clientscore/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.clientscore")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CLIENTSCORE_GATEWAY_PREDICT_URL overrides gateway.predict_url
	viper.SetEnvPrefix("CLIENTSCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	c := model.DefaultConfig()
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if viper.GetBool("verbose") {
		c.Log.Level = "debug"
	}
	if err := validateConfig(c); err != nil {
		return nil, err
	}
	return c, nil
}

func validateConfig(c *model.Config) error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid store.driver %q (want memory or sqlite)", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite driver")
	}
	if c.Gateway.PredictURL == "" {
		return fmt.Errorf("gateway.predict_url is required")
	}
	return nil
}

// registerDefaults makes every config key known to viper so that environment
// variables can override keys absent from the config file
func registerDefaults(v *viper.Viper, defaults *model.Config) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			setDefaults(v, full, nested)
			continue
		}
		v.SetDefault(full, value)
	}
}
