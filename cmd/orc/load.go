package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waveforge/orc/internal/config"
	"github.com/waveforge/orc/internal/graph"
	"github.com/waveforge/orc/internal/logger"
	"github.com/waveforge/orc/internal/models"
	"github.com/waveforge/orc/internal/orchestrator"
)

// commonFlags is the set of flags every subcommand that opens a Scheduler
// needs: which graph to drive, which checkout to drive it against, and
// where the orchestrator keeps its own state.
type commonFlags struct {
	graphPath string
	repoDir   string
	homeDir   string
	configPath string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.graphPath, "graph", "", "path to the task-graph document (JSON or YAML)")
	cmd.Flags().StringVar(&f.repoDir, "repo", ".", "git checkout the orchestrator drives")
	cmd.Flags().StringVar(&f.homeDir, "home", "", "orchestrator runtime directory (default <repo>/.orc)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to a YAML orchestrator config (default built-in defaults)")
	_ = cmd.MarkFlagRequired("graph")
}

// loadGraph reads and parses the task-graph document at path, detecting
// JSON vs. YAML from its extension.
func loadGraph(path string) (*models.TaskGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph document: %w", err)
	}

	var doc *graph.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		doc, err = graph.ParseJSON(data)
	case ".yaml", ".yml":
		doc, err = graph.ParseYAML(data)
	default:
		return nil, fmt.Errorf("unrecognized graph document extension %q (want .json, .yaml, or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return doc.ToTaskGraph(), nil
}

// loadConfig reads the YAML config at path, or falls back to
// config.DefaultConfig when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

// newLogger builds the console+file fan-out logger every command reports
// progress through, rooted at cfg.LogDir.
func newLogger(cfg *config.Config) (logger.Logger, error) {
	console := logger.NewConsoleLogger(os.Stdout)
	file, err := logger.NewFileLogger(cfg.LogDir)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return logger.MultiLogger{console, file}, nil
}

// openScheduler loads the graph and config named by f and constructs a
// Scheduler ready for Run or a control operation.
func openScheduler(f *commonFlags) (*orchestrator.Scheduler, error) {
	g, err := loadGraph(f.graphPath)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	sched, err := orchestrator.New(orchestrator.Options{
		Feature: g.FeatureID,
		Graph:   g,
		RepoDir: f.repoDir,
		HomeDir: f.homeDir,
		Config:  cfg,
		Log:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("construct scheduler: %w", err)
	}
	return sched, nil
}
