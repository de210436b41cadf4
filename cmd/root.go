package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris/railtl/internal/config"
	"github.com/chris/railtl/internal/db"
	applog "github.com/chris/railtl/internal/log"
	"github.com/chris/railtl/internal/railway"
	"github.com/chris/railtl/internal/timeline"
	"github.com/chris/railtl/pkg/models"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	projectRef string
)

// nowFunc is replaced in tests
var nowFunc = time.Now

var rootCmd = &cobra.Command{
	Use:   "railtl",
	Short: "Deployment timeline for Railway projects",
	Long:  "Browse Railway projects, start and stop services, and view deployment history on a zoomable timeline",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applog.Setup(logLevel, cmd.ErrOrStderr())
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file path (default: ~/.local/share/railtl/railtl.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.config/railtl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&projectRef, "project", "p", "", "Project id (default: project_id from config)")
	rootCmd.SilenceErrors = true
}

// loadConfig reads the config file and applies its log level unless
// --log-level was given
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cmd.Flags().Changed("log-level") {
		applog.Setup(cfg.LogLevel, cmd.ErrOrStderr())
	}
	return cfg, nil
}

// storePath prefers --db over the config file
func storePath(cfg *config.Config) string {
	if dbPath != "" || cfg == nil {
		return dbPath
	}
	return cfg.DBPath
}

func openStore(cfg *config.Config) (*db.DB, error) {
	database, err := db.New(storePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

func newClient(cfg *config.Config) (*railway.Client, error) {
	token := cfg.APIToken()
	if token == "" {
		return nil, fmt.Errorf("%w: set token in the config file or %s", railway.ErrUnauthorized, config.TokenEnv)
	}
	return railway.New(token,
		railway.WithEndpoint(cfg.APIURL),
		railway.WithUserAgent("railtl/"+Version),
	), nil
}

// projectID prefers --project over the config file
func projectID(cfg *config.Config) string {
	if projectRef != "" || cfg == nil {
		return projectRef
	}
	return cfg.ProjectID
}

// resolveProject picks a stored project by id. An empty id is accepted
// when exactly one project is stored.
func resolveProject(store db.Store, id string) (*models.Project, error) {
	if id != "" {
		return store.GetProject(id)
	}
	projects, err := store.ListProjects()
	if err != nil {
		return nil, err
	}
	switch len(projects) {
	case 0:
		return nil, errors.New("no projects stored, run: railtl sync or railtl import")
	case 1:
		return store.GetProject(projects[0].ID)
	default:
		return nil, fmt.Errorf("%d projects stored, choose one with --project", len(projects))
	}
}

// resolveEnvironment matches an environment by id or name and falls back
// to the first one
func resolveEnvironment(envs []models.Environment, pref string) (models.Environment, error) {
	if len(envs) == 0 {
		return models.Environment{}, errors.New("project has no environments")
	}
	if pref == "" {
		return envs[0], nil
	}
	for _, env := range envs {
		if env.ID == pref || strings.EqualFold(env.Name, pref) {
			return env, nil
		}
	}
	return models.Environment{}, fmt.Errorf("environment %q not found", pref)
}

// resolveService matches a service by id or name
func resolveService(services []models.Service, ref string) (models.Service, error) {
	for _, svc := range services {
		if svc.ID == ref || strings.EqualFold(svc.Name, ref) {
			return svc, nil
		}
	}
	return models.Service{}, fmt.Errorf("service %q not found", ref)
}

// parseLocation resolves a --tz flag; empty means local time
func parseLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// parseStart accepts "today", "now", RFC 3339, "2006-01-02" or
// "2006-01-02 15:04" (the last two in loc)
func parseStart(s string, loc *time.Location) (time.Time, error) {
	now := nowFunc().In(loc)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return timeline.StartOfDay(now), nil
	case "now":
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, loc); err == nil {
		return t, nil
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		year, month, day := d.Date()
		return timeline.DayStart(year, month, day, loc), nil
	}
	return time.Time{}, fmt.Errorf("start must be 'today', 'now', RFC 3339, YYYY-MM-DD or 'YYYY-MM-DD HH:MM'")
}
