package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/guestbook/internal/core/config"
	"github.com/hay-kot/guestbook/internal/printer"
)

// configSections lists the report rows in display order. Problems on fields
// outside these sections are reported under "general".
var configSections = []string{"config_file", "data_dir", "server", "client", "classifier", "store", "moderation"}

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate configuration file",
				UsageText: "guestbook config validate [--format text|json]",
				Description: `Checks the configuration section by section: listen address, server URL,
classifier kind and threshold, lexicon glob patterns, store driver and the
data directory. Exits 1 when any section has errors.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	report := buildConfigReport(cfg, cfg.ValidateDeep(cmd.flags.ConfigPath), cfg.Warnings())

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printConfigReport(c.Root().Writer, report)

	p := printer.Ctx(ctx)
	if !report.Valid {
		p.Errorf("%d error(s), %d warning(s)", report.errorCount(), report.warningCount())
		return cli.Exit("", 1)
	}
	p.Successf("Configuration is valid")
	return nil
}

// sectionReport holds the outcome for one top-level config section.
type sectionReport struct {
	Name     string   `json:"name"`
	Summary  string   `json:"summary,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type configReport struct {
	Valid    bool            `json:"valid"`
	Sections []sectionReport `json:"sections"`
}

func (r configReport) errorCount() int {
	return lo.SumBy(r.Sections, func(s sectionReport) int { return len(s.Errors) })
}

func (r configReport) warningCount() int {
	return lo.SumBy(r.Sections, func(s sectionReport) int { return len(s.Warnings) })
}

func buildConfigReport(cfg *config.Config, validationErr error, warnings []config.ValidationWarning) configReport {
	summaries := map[string]string{
		"data_dir":   cfg.DataDir,
		"server":     fmt.Sprintf("listen %s, tail %d", cfg.Server.Addr, cfg.Server.TailLimit),
		"client":     fmt.Sprintf("%s, tail %d, notice %s", cfg.Client.ServerURL, cfg.Client.TailLimit, cfg.Client.NoticeDuration),
		"classifier": fmt.Sprintf("%s, threshold %.2f", cfg.Classifier.Kind, cfg.Classifier.Threshold),
		"store":      storeSummary(cfg),
		"moderation": lo.Ternary(cfg.Moderation.Enabled, "enabled", "disabled"),
	}

	byName := map[string]*sectionReport{}
	sections := make([]*sectionReport, 0, len(configSections)+1)
	section := func(name string) *sectionReport {
		if s, ok := byName[name]; ok {
			return s
		}
		s := &sectionReport{Name: name, Summary: summaries[name]}
		byName[name] = s
		sections = append(sections, s)
		return s
	}
	for _, name := range configSections {
		section(name)
	}

	for _, fe := range extractFieldErrors(validationErr) {
		s := section(sectionOf(fe.Field))
		msg := fe.Err.Error()
		if field, ok := strings.CutPrefix(fe.Field, s.Name+"."); ok {
			msg = field + ": " + msg
		}
		s.Errors = append(s.Errors, msg)
	}

	for _, w := range warnings {
		s := section(strings.ToLower(w.Category))
		msg := w.Message
		if w.Item != "" {
			msg = w.Item + ": " + msg
		}
		s.Warnings = append(s.Warnings, msg)
	}

	report := configReport{Valid: validationErr == nil}
	for _, s := range sections {
		report.Sections = append(report.Sections, *s)
	}
	return report
}

func storeSummary(cfg *config.Config) string {
	switch cfg.Store.Driver {
	case config.StoreBadger:
		return "badger at " + cfg.BadgerDir()
	case config.StoreRedis:
		return fmt.Sprintf("redis at %s/%d, prefix %s", cfg.Store.Redis.Addr, cfg.Store.Redis.DB, cfg.Store.Redis.KeyPrefix)
	default:
		return cfg.Store.Driver + " at " + cfg.MessagesFile()
	}
}

// sectionOf maps a field path such as "classifier.lexicon_paths[0]" to its
// top-level section.
func sectionOf(field string) string {
	name, _, _ := strings.Cut(field, ".")
	name, _, _ = strings.Cut(name, "[")
	if name == "" {
		return "general"
	}
	return name
}

func printConfigReport(w io.Writer, report configReport) {
	table := printer.NewTable(w, "Section", "Status", "Detail")
	for _, s := range report.Sections {
		if len(s.Errors) == 0 && len(s.Warnings) == 0 {
			if s.Summary != "" {
				table.Append([]string{s.Name, printer.StatusOK(), s.Summary})
			}
			continue
		}
		for _, msg := range s.Errors {
			table.Append([]string{s.Name, printer.StatusFailed("error"), msg})
		}
		for _, msg := range s.Warnings {
			table.Append([]string{s.Name, printer.StatusWarn("warn"), msg})
		}
	}
	table.Render()
}

// extractFieldErrors extracts field errors from a validation error.
func extractFieldErrors(err error) criterio.FieldErrors {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		return fieldErrs
	}
	return criterio.FieldErrors{{Err: err}}
}
