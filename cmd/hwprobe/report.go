package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/thesyncim/hwcodec"
	"gopkg.in/yaml.v3"
)

// Report is the document printed (and optionally uploaded) by `hwprobe probe`.
type Report struct {
	ID           string         `json:"id" yaml:"id"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	Host         HostInfo       `json:"host" yaml:"host"`
	SharedHandle bool           `json:"shared_handle" yaml:"shared_handle"`
	Drivers      []DriverStatus `json:"drivers" yaml:"drivers"`
	Trials       []TrialEntry   `json:"trials" yaml:"trials"`
	Contexts     []ContextEntry `json:"contexts" yaml:"contexts"`
}

type HostInfo struct {
	Hostname        string `json:"hostname" yaml:"hostname"`
	OS              string `json:"os" yaml:"os"`
	Platform        string `json:"platform,omitempty" yaml:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty" yaml:"platform_version,omitempty"`
	Arch            string `json:"arch" yaml:"arch"`
	CPUModel        string `json:"cpu_model,omitempty" yaml:"cpu_model,omitempty"`
	CPUCores        int    `json:"cpu_cores,omitempty" yaml:"cpu_cores,omitempty"`
	MemoryTotal     uint64 `json:"memory_total,omitempty" yaml:"memory_total,omitempty"`
}

type DriverStatus struct {
	Name    string `json:"name" yaml:"name"`
	Vendor  string `json:"vendor" yaml:"vendor"`
	Library string `json:"library" yaml:"library"`
	Loaded  bool   `json:"loaded" yaml:"loaded"`
}

type TrialEntry struct {
	Driver   string  `json:"driver" yaml:"driver"`
	Format   string  `json:"format" yaml:"format"`
	API      string  `json:"api" yaml:"api"`
	Outcome  string  `json:"outcome" yaml:"outcome"`
	Status   int32   `json:"status" yaml:"status"`
	Adapters []int64 `json:"adapters,omitempty" yaml:"adapters,omitempty"`
	Duration string  `json:"duration" yaml:"duration"`
}

type ContextEntry struct {
	Driver       string `json:"driver" yaml:"driver"`
	Format       string `json:"format" yaml:"format"`
	API          string `json:"api" yaml:"api"`
	LUID         int64  `json:"luid" yaml:"luid"`
	SharedHandle bool   `json:"shared_handle" yaml:"shared_handle"`
}

// collectHostInfo gathers host details. Missing details are left empty.
func collectHostInfo(ctx context.Context) HostInfo {
	info := HostInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		if h.KernelArch != "" {
			info.Arch = h.KernelArch
		}
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCores = n
	}
	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = v.Total
	}
	return info
}

func driverStatuses(registry *hwcodec.Registry) []DriverStatus {
	loaded := make(map[hwcodec.Driver]bool)
	for _, d := range registry.Drivers() {
		loaded[d] = true
	}
	out := make([]DriverStatus, 0, len(hwcodec.Drivers))
	for _, d := range hwcodec.Drivers {
		out = append(out, DriverStatus{
			Name:    d.String(),
			Vendor:  d.Vendor(),
			Library: d.LibraryName(),
			Loaded:  loaded[d],
		})
	}
	return out
}

func buildReport(probe hwcodec.ProbeReport, shared bool, hostInfo HostInfo, registry *hwcodec.Registry) Report {
	r := Report{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Host:         hostInfo,
		SharedHandle: shared,
		Drivers:      driverStatuses(registry),
		Trials:       make([]TrialEntry, 0, len(probe.Trials)),
		Contexts:     make([]ContextEntry, 0, len(probe.Contexts)),
	}
	for _, t := range probe.Trials {
		e := TrialEntry{
			Driver:   t.Driver.String(),
			Format:   t.DataFormat.String(),
			API:      t.API.String(),
			Outcome:  t.Outcome.String(),
			Status:   t.Status,
			Duration: t.Duration.Round(time.Millisecond).String(),
		}
		for _, a := range t.Adapters {
			e.Adapters = append(e.Adapters, int64(a.LUID))
		}
		r.Trials = append(r.Trials, e)
	}
	for _, c := range probe.Contexts {
		r.Contexts = append(r.Contexts, ContextEntry{
			Driver:       c.Driver.String(),
			Format:       c.DataFormat.String(),
			API:          c.API.String(),
			LUID:         int64(c.LUID),
			SharedHandle: c.OutputSharedHandle,
		})
	}
	return r
}

func writeReport(w io.Writer, r Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// newUploadClient creates an HTTP client with retries.
func newUploadClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil // Silence default debug logger
	return retryClient.StandardClient()
}

// uploadReport POSTs the report as JSON to url.
func uploadReport(ctx context.Context, client *http.Client, url string, r Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Probe-ID", r.ID)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("report endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
