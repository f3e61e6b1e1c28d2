package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thesyncim/hwcodec"
	"gopkg.in/yaml.v3"
)

func sampleProbe() hwcodec.ProbeReport {
	return hwcodec.ProbeReport{
		Contexts: []hwcodec.DecodeContext{
			{Driver: hwcodec.DriverNV, DataFormat: hwcodec.DataFormatH264, API: hwcodec.APIDX11, LUID: 7},
		},
		Trials: []hwcodec.TrialResult{
			{
				Driver:     hwcodec.DriverNV,
				DataFormat: hwcodec.DataFormatH264,
				API:        hwcodec.APIDX11,
				Outcome:    hwcodec.TrialAccepted,
				Adapters:   []hwcodec.AdapterDesc{{LUID: 7}},
				Duration:   12300 * time.Microsecond,
			},
			{
				Driver:     hwcodec.DriverNV,
				DataFormat: hwcodec.DataFormatH265,
				API:        hwcodec.APIDX11,
				Outcome:    hwcodec.TrialFailed,
				Status:     -4,
			},
		},
	}
}

func TestBuildReport(t *testing.T) {
	reg := hwcodec.NewRegistry()
	reg.Register(hwcodec.DriverNV, &fakeDriver{})

	r := buildReport(sampleProbe(), false, HostInfo{Hostname: "rig", OS: "windows", Arch: "amd64"}, reg)

	_, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), r.CreatedAt, time.Minute)
	assert.Equal(t, "rig", r.Host.Hostname)

	require.Len(t, r.Drivers, 3)
	assert.Equal(t, DriverStatus{Name: "nv", Vendor: "NVIDIA", Library: hwcodec.DriverNV.LibraryName(), Loaded: true}, r.Drivers[0])
	assert.False(t, r.Drivers[1].Loaded)
	assert.False(t, r.Drivers[2].Loaded)

	assert.Equal(t, []TrialEntry{
		{Driver: "nv", Format: "H264", API: "DX11", Outcome: "accepted", Adapters: []int64{7}, Duration: "12ms"},
		{Driver: "nv", Format: "H265", API: "DX11", Outcome: "failed", Status: -4, Duration: "0s"},
	}, r.Trials)
	assert.Equal(t, []ContextEntry{{Driver: "nv", Format: "H264", API: "DX11", LUID: 7}}, r.Contexts)
}

func TestWriteReport(t *testing.T) {
	r := buildReport(sampleProbe(), true, HostInfo{OS: "linux"}, hwcodec.NewRegistry())

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, r, "json"))
	var fromJSON Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, r.ID, fromJSON.ID)
	assert.Equal(t, r.Contexts, fromJSON.Contexts)

	buf.Reset()
	require.NoError(t, writeReport(&buf, r, "yaml"))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, r.ID, fromYAML["id"])
	assert.Equal(t, true, fromYAML["shared_handle"])

	assert.Error(t, writeReport(&buf, r, "toml"))
}

func TestUploadReport(t *testing.T) {
	type upload struct {
		probeID string
		report  Report
	}
	received := make(chan upload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		var u upload
		u.probeID = req.Header.Get("X-Probe-ID")
		body, _ := io.ReadAll(req.Body)
		assert.NoError(t, json.Unmarshal(body, &u.report))
		received <- u
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	r := buildReport(sampleProbe(), false, HostInfo{}, hwcodec.NewRegistry())
	require.NoError(t, uploadReport(context.Background(), srv.Client(), srv.URL, r))

	u := <-received
	assert.Equal(t, r.ID, u.probeID)
	assert.Equal(t, r.Trials, u.report.Trials)
}

func TestUploadReport_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := uploadReport(context.Background(), srv.Client(), srv.URL, Report{ID: "x"})
	assert.ErrorContains(t, err, "400")
}

func TestUploadClient_Retries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, uploadReport(context.Background(), newUploadClient(), srv.URL, Report{ID: "retry"}))
	assert.EqualValues(t, 2, hits.Load())
}
