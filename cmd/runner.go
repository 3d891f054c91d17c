package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/piper-ml/piper/internal/mood"
	"github.com/piper-ml/piper/internal/server"
	"github.com/piper-ml/piper/internal/services"
	"github.com/piper-ml/piper/internal/shared"
	"github.com/piper-ml/piper/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Version is the CLI version, kept in lockstep with the service banner.
const Version = server.Version

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	catalog services.Catalog
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Catalog services.Catalog
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewSpotifyService(services.SpotifyOpts{Logger: opts.Logger})
	}

	return &Runner{
		config:  opts.Config,
		catalog: opts.Catalog,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, recommendCommand, exportCommand, authCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig swaps in the config file named by the --config flag when it
// differs from the startup default.
func (r *Runner) reloadConfig(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if path == "config.toml" {
			return nil
		}
		return fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	return nil
}

// loadClassifier loads the mood classifier artifacts named by the config.
func (r *Runner) loadClassifier() (*mood.Classifier, error) {
	return mood.Load(r.config.Model.WeightsPath, r.config.Model.ScalerPath)
}

// engine builds a pipeline engine; the classifier may be nil for export use.
func (r *Runner) engine(classifier *mood.Classifier) *tasks.MoodEngine {
	return tasks.NewMoodEngine(r.catalog, classifier, r.logger)
}

// resolveToken returns the delegated access token from the --token flag or
// the SPOTIFY_ACCESS_TOKEN environment variable.
func (r *Runner) resolveToken(cmd *cli.Command) (string, error) {
	if token := cmd.String("token"); token != "" {
		return token, nil
	}
	if token := os.Getenv("SPOTIFY_ACCESS_TOKEN"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("%w: access token (--token or SPOTIFY_ACCESS_TOKEN)", shared.ErrMissingArgument)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	encoder := json.NewEncoder(r.output)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func (r *Runner) writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(r.output, format, args...)
	return err
}

func (r *Runner) writeTitle(title string) {
	fmt.Fprintln(r.output, titleStyle.Render(title))
}

func (r *Runner) writeHelp(text string) {
	fmt.Fprintln(r.output, helpStyle.Render(text))
}
