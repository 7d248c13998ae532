// Package runner orchestrates generation cycles: capture → upload → submit →
// poll → download, and the start/stop state machine that schedules them.
package runner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"comfycam/internal/capture"
	"comfycam/internal/comfy"
	"comfycam/internal/logging"
	"comfycam/internal/workflow"
)

// Service is the slice of the ComfyUI client one cycle needs.
type Service interface {
	UploadImage(ctx context.Context, path string) (string, error)
	SubmitPrompt(ctx context.Context, graph *workflow.Graph) (string, error)
	PollHistory(ctx context.Context, promptID string, opts comfy.PollOptions) (*comfy.ArtifactRef, error)
	FetchView(ctx context.Context, ref comfy.ArtifactRef) (image.Image, error)
	Host() string
}

// Options configures an Orchestrator.
type Options struct {
	// InputNode receives the uploaded frame name in the prompt graph.
	InputNode string
	// OutputNode is the graph node the poller watches.
	OutputNode string
	// SaveDir is where captured frames are persisted before upload.
	SaveDir string
	// PollTimeout and PollInterval override the poll defaults (tests).
	PollTimeout  time.Duration
	PollInterval time.Duration
}

// Orchestrator runs one full cycle at a time and publishes progress to a
// shared Status.
type Orchestrator struct {
	service Service
	device  capture.Device
	graph   *workflow.Graph
	status  *Status
	log     *logging.Logger
	opts    Options
}

// NewOrchestrator wires a cycle orchestrator. The graph is the pristine
// template; each cycle derives its own copy.
func NewOrchestrator(service Service, device capture.Device, graph *workflow.Graph, status *Status, log *logging.Logger, opts Options) *Orchestrator {
	if log == nil {
		log = logging.Default()
	}
	return &Orchestrator{
		service: service,
		device:  device,
		graph:   graph,
		status:  status,
		log:     log.WithComponent("cycle"),
		opts:    opts,
	}
}

// Status returns the shared status observable.
func (o *Orchestrator) Status() *Status { return o.status }

// RunCycle executes one capture→upload→submit→poll→download cycle. Every
// failure is converted to a human-readable status; the error return exists
// so the controller can recognize an unreachable server and stop loop mode.
// A poll timeout and an undecodable result end the cycle cleanly with their
// own statuses.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	err := o.runCycle(ctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, comfy.ErrServerUnreachable) {
		o.status.Set(fmt.Sprintf("Cannot reach ComfyUI at %s; stopping loop.", o.service.Host()))
	} else {
		o.status.Set(err.Error())
	}
	o.log.Error("cycle failed", "error", err)
	return err
}

func (o *Orchestrator) runCycle(ctx context.Context) error {
	start := time.Now()

	o.status.Set("Capturing...")
	frame, err := o.device.Frame()
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	framePath, err := capture.SaveFrame(frame, o.opts.SaveDir)
	if err != nil {
		return err
	}
	o.log.Debug("frame saved", "path", framePath)

	o.status.Set("Uploading...")
	uploadedName, err := o.service.UploadImage(ctx, framePath)
	if err != nil {
		return err
	}

	o.status.Set("Queuing...")
	graph, err := o.graph.WithInputImage(o.opts.InputNode, uploadedName)
	if err != nil {
		return err
	}
	promptID, err := o.service.SubmitPrompt(ctx, graph)
	if err != nil {
		return err
	}
	o.log.Info("job queued", "prompt_id", promptID, "input", uploadedName)

	o.status.Set("Generating...")
	ref, err := o.service.PollHistory(ctx, promptID, comfy.PollOptions{
		Timeout:    o.opts.PollTimeout,
		Interval:   o.opts.PollInterval,
		OutputNode: o.opts.OutputNode,
	})
	if err != nil {
		return err
	}
	if ref == nil {
		o.status.Set("Timed out waiting for result.")
		o.log.Warn("poll timed out", "prompt_id", promptID)
		return nil
	}

	img, err := o.service.FetchView(ctx, *ref)
	if err != nil {
		return err
	}
	if img == nil {
		o.status.Set("Failed to load result image.")
		return nil
	}

	o.status.SetResult(img, ref.Filename)
	o.status.Set("Done: " + ref.Filename)
	o.log.Info("cycle complete",
		"filename", ref.Filename,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
