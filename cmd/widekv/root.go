package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aalhour/widekv"
	"github.com/aalhour/widekv/db"
	"github.com/aalhour/widekv/internal/compression"
	"github.com/aalhour/widekv/internal/logging"
)

const envPrefix = "WIDEKV"

// config is the merged view of flags, environment and config file.
type config struct {
	DB              string `mapstructure:"db"`
	LogLevel        string `mapstructure:"log-level"`
	LogFormat       string `mapstructure:"log-format"`
	Output          string `mapstructure:"output"`
	CreateIfMissing bool   `mapstructure:"create-if-missing"`
	WALCompression  string `mapstructure:"wal-compression"`
	ColumnFamily    string `mapstructure:"cf"`
}

type app struct {
	v      *viper.Viper
	cfg    config
	logger *zap.Logger
	stats  widekv.Statistics
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "widekv",
		Short: "widekv - wide-column entity tool",
		Long: `widekv reads and writes wide-column entities: keys holding an ordered
set of named columns. Keys and values prefixed with 0x are parsed as hex.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.String("db", "", "Path to the database")
	pf.String("config", "", "YAML config file")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")
	pf.String("log-format", "console", "Log format (console, json)")
	pf.StringP("output", "o", "text", "Output format (text, json, yaml)")
	pf.Bool("create-if-missing", false, "Create the database if it does not exist")
	pf.String("wal-compression", "none", "WAL compression for new databases (none, snappy, zlib, lz4, lz4hc, zstd)")
	pf.String("cf", db.DefaultColumnFamilyName, "Column family for data commands")

	root.AddCommand(
		a.putEntityCmd(),
		a.getEntityCmd(),
		a.scanCmd(),
		a.batchPutCmd(),
		a.createCFCmd(),
		a.listCFCmd(),
		a.statsCmd(),
		versionCmd(),
	)
	return root
}

// load merges flags over environment over the config file.
func (a *app) load(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	switch a.cfg.Output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", a.cfg.Output)
	}

	logger, err := newLogger(cmd, a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// newLogger builds a zap logger writing to the command's stderr.
func newLogger(cmd *cobra.Command, level, format string) (*zap.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(encoderConfig)
	case "console", "":
		enc = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(cmd.ErrOrStderr()), logging.ZapLevel(lvl))
	return zap.New(core).Named("widekv"), nil
}

func (a *app) openDB() (*db.DB, error) {
	if a.cfg.DB == "" {
		return nil, fmt.Errorf("--db is required")
	}
	codec, err := compression.ParseType(a.cfg.WALCompression)
	if err != nil {
		return nil, fmt.Errorf("invalid --wal-compression: %w", err)
	}
	opts := db.DefaultOptions()
	opts.CreateIfMissing = a.cfg.CreateIfMissing
	opts.WALCompression = codec
	opts.Logger = logging.NewZapLogger(a.logger)
	opts.Statistics = a.stats
	d, err := db.Open(a.cfg.DB, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return d, nil
}

// columnFamily resolves name, falling back to --cf when name is empty.
func (a *app) columnFamily(d *db.DB, name string) (widekv.ColumnFamilyHandle, error) {
	if name == "" {
		name = a.cfg.ColumnFamily
	}
	if name == "" || name == db.DefaultColumnFamilyName {
		return d.DefaultColumnFamily(), nil
	}
	h, ok := d.GetColumnFamily(name)
	if !ok {
		return nil, fmt.Errorf("column family %q: %w", name, db.ErrColumnFamilyNotFound)
	}
	return h, nil
}
