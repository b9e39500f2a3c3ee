package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"github.com/etftools/etf/internal/config"
	"github.com/etftools/etf/pkg/cache"
	"github.com/etftools/etf/pkg/errors"
	pkgio "github.com/etftools/etf/pkg/io"
	"github.com/etftools/etf/pkg/resolve"
	"github.com/etftools/etf/pkg/taxonomy"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "etf"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	In  io.Reader // documents read from "-"
	Out io.Writer // command results and documents written to "-"
	Err io.Writer // status lines

	// Interactive enables the spinner and the node browser.
	Interactive bool

	flags globalFlags
	cfg   *config.Config
	tax   *taxonomy.Taxonomy
}

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	verbose    bool
	configPath string
	metadata   string
	noCache    bool
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:      newLogger(w, level),
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Interactive: isatty.IsTerminal(os.Stderr.Fd()),
		cfg:         config.DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the configuration in effect.
func (c *CLI) Config() *config.Config { return c.cfg }

// =============================================================================
// Factories
// =============================================================================

// newResolver builds a resolver over the loaded taxonomy with the
// configured aliases.
func (c *CLI) newResolver(tax *taxonomy.Taxonomy) *resolve.Resolver {
	return resolve.New(tax,
		resolve.WithAliases(c.cfg.Aliases),
		resolve.WithLogger(c.Logger),
	)
}

// newCache opens the configured snapshot cache backend.
func (c *CLI) newCache() (cache.Cache, error) {
	if c.flags.noCache || c.cfg.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if url := c.cfg.Cache.RedisURL; url != "" {
		rc, err := cache.NewRedisCache(url, appName+":")
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// keyer scopes snapshot keys to this tool.
var keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), appName+":")

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/etf/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// ioPath returns the positional argument at i, or the standard stream.
func ioPath(args []string, i int) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return pkgio.StdStream
}

// ReportError prints err for the user and returns the process exit code.
// Coded errors show their message; the code itself is logged at debug level.
func (c *CLI) ReportError(err error) int {
	if code := errors.GetCode(err); code != "" {
		printError(c.Err, "%s", errors.UserMessage(err))
		c.Logger.Debug("command failed", "code", code, "err", err)
	} else {
		printError(c.Err, "%s", err)
	}
	return errors.ExitCode(err)
}
