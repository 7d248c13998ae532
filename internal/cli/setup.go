package cli

import (
	"fmt"

	"comfycam/internal/capture"
	"comfycam/internal/comfy"
	"comfycam/internal/config"
	"comfycam/internal/logging"
	"comfycam/internal/runner"
	"comfycam/internal/workflow"
)

// app bundles the wired components a command works with.
type app struct {
	cfg      *config.Config
	client   *comfy.Client
	device   capture.Device
	status   *runner.Status
	orch     *runner.Orchestrator
	ctrl     *runner.Controller
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagHost != "" {
		cfg.Server.Host = flagHost
	}
	if cfg.Verbose {
		logging.SetLevel(logging.LevelDebug)
	}
	return cfg, nil
}

// buildSource selects the configured frame source.
func buildSource(cfg *config.Config) capture.Source {
	if cfg.Capture.Source == config.SourceDirectory {
		return &capture.DirectorySource{Dir: cfg.Capture.Directory}
	}
	return &capture.PatternSource{}
}

// buildApp wires the client, frame device, orchestrator, and controller from
// config. The caller closes the returned device.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	graph := workflow.Default()
	if cfg.Workflow.TemplatePath != "" {
		graph, err = workflow.Load(cfg.Workflow.TemplatePath)
		if err != nil {
			return nil, err
		}
	}
	if !graph.HasNode(cfg.Workflow.InputNode) {
		return nil, fmt.Errorf("workflow graph has no input node %q", cfg.Workflow.InputNode)
	}
	if !graph.HasNode(cfg.Workflow.OutputNode) {
		return nil, fmt.Errorf("workflow graph has no output node %q", cfg.Workflow.OutputNode)
	}

	var clientOpts []comfy.Option
	if cfg.Workflow.ClientID != "" {
		clientOpts = append(clientOpts, comfy.WithClientID(cfg.Workflow.ClientID))
	}
	client := comfy.New(cfg.Server.Host, clientOpts...)

	source := buildSource(cfg)
	devices, err := source.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices available")
	}
	device, err := source.Open(devices[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}

	status := runner.NewStatus()
	orch := runner.NewOrchestrator(client, device, graph, status, logging.Default(), runner.Options{
		InputNode:  cfg.Workflow.InputNode,
		OutputNode: cfg.Workflow.OutputNode,
		SaveDir:    cfg.Capture.SaveDir,
	})

	return &app{
		cfg:    cfg,
		client: client,
		device: device,
		status: status,
		orch:   orch,
		ctrl:   runner.NewController(orch),
	}, nil
}
