package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thesyncim/hwcodec"
)

// app holds what the commands share.
type app struct {
	v        *viper.Viper
	cfg      *Config
	log      zerolog.Logger
	out      io.Writer
	registry *hwcodec.Registry

	// Replaced in tests.
	hostInfo func(ctx context.Context) HostInfo
	upload   func(ctx context.Context, url string, r Report) error
}

func newApp(out io.Writer) *app {
	client := newUploadClient()
	return &app{
		v:        viper.New(),
		out:      out,
		log:      zerolog.Nop(),
		registry: hwcodec.DefaultRegistry(),
		hostInfo: collectHostInfo,
		upload: func(ctx context.Context, url string, r Report) error {
			return uploadReport(ctx, client, url, r)
		},
	}
}

// newRootCmd creates the root command for hwprobe.
func newRootCmd(a *app) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "hwprobe",
		Short:         "Probe and exercise hardware video decoders",
		Long:          `hwprobe finds which NVIDIA, AMD and Intel hardware decoders work on this machine by running trial decodes, and can decode a file with the best match.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.v, configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			hwcodec.SetLoggerFactory(zerologFactory{log: a.log})
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (YAML)")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "auto", "log format: auto, console, json")
	pf.Bool("shared-handle", false, "request shareable output textures")
	pf.Duration("trial-timeout", 10*time.Second, "per-trial probe timeout (0 = wait indefinitely)")
	pf.Int("max-concurrency", 0, "concurrent probe trials (0 = unlimited)")
	pf.String("samples-dir", "", "directory of probing samples")
	pf.String("h264", "", "H.264 probing sample (Annex-B or MP4)")
	pf.String("h265", "", "H.265 probing sample (Annex-B or MP4)")
	pf.StringSlice("prefer", nil, "driver preference order, e.g. nv,amf,vpl")
	pf.Int64("luid", 0, "adapter LUID to decode on (0 = any)")

	for key, flag := range map[string]string{
		"log_level":       "log-level",
		"log_format":      "log-format",
		"shared_handle":   "shared-handle",
		"trial_timeout":   "trial-timeout",
		"max_concurrency": "max-concurrency",
		"samples.dir":     "samples-dir",
		"samples.h264":    "h264",
		"samples.h265":    "h265",
		"prefer":          "prefer",
		"luid":            "luid",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(newProbeCmd(a), newDecodeCmd(a), newDriversCmd(a))
	return rootCmd
}

func (a *app) probe(ctx context.Context) (hwcodec.ProbeReport, error) {
	samples, err := a.cfg.sampleSet()
	if err != nil {
		return hwcodec.ProbeReport{}, err
	}
	if len(samples.Formats()) == 0 {
		return hwcodec.ProbeReport{}, errors.New("no probing samples: set --samples-dir, --h264 or --h265")
	}

	pc := a.cfg.proberConfig(samples)
	pc.Registry = a.registry
	report := hwcodec.NewProber(pc).Probe(ctx, a.cfg.SharedHandle)

	a.log.Info().
		Int("trials", len(report.Trials)).
		Int("contexts", len(report.Contexts)).
		Msg("probe finished")
	return report, nil
}

func newProbeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run trial decodes on every driver and print the usable contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			probe, err := a.probe(ctx)
			if err != nil {
				return err
			}

			report := buildReport(probe, a.cfg.SharedHandle, a.hostInfo(ctx), a.registry)
			if err := writeReport(a.out, report, a.cfg.Output); err != nil {
				return err
			}

			if a.cfg.ReportURL != "" {
				if err := a.upload(ctx, a.cfg.ReportURL, report); err != nil {
					return err
				}
				a.log.Info().Str("id", report.ID).Str("url", a.cfg.ReportURL).Msg("report uploaded")
			}
			return nil
		},
	}
	cmd.Flags().String("output", "yaml", "report format: yaml or json")
	cmd.Flags().String("report-url", "", "POST the JSON report to this URL")
	_ = a.v.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = a.v.BindPFlag("report_url", cmd.Flags().Lookup("report-url"))
	return cmd
}

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode an H.264/H.265 file with the preferred working decoder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, units, err := hwcodec.ReadAccessUnits(args[0])
			if err != nil {
				return err
			}

			probe, err := a.probe(cmd.Context())
			if err != nil {
				return err
			}
			prefer, err := a.cfg.preferredDrivers()
			if err != nil {
				return err
			}
			dc, ok := hwcodec.SelectContext(probe.Contexts, format, hwcodec.LUID(a.cfg.LUID), prefer)
			if !ok {
				return fmt.Errorf("%w %s", hwcodec.ErrNoContext, format)
			}

			dec, err := a.registry.NewDecoder(dc)
			if err != nil {
				return err
			}
			defer dec.Close()

			a.log.Info().Str("context", dc.String()).Int("access_units", len(units)).Msg("decoding")
			for i, au := range units {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				frames, err := dec.Decode(au)
				var decErr *hwcodec.DecodeError
				switch {
				case errors.As(err, &decErr):
					fmt.Fprintf(a.out, "au %d: %d frames, status %d\n", i, len(frames), decErr.Status)
				case err != nil:
					return err
				default:
					fmt.Fprintf(a.out, "au %d: %d frames\n", i, len(frames))
				}
			}

			st := dec.Stats()
			fmt.Fprintf(a.out, "decoded %d packets into %d frames (%d failed) with %s\n",
				st.PacketsDecoded, st.FramesDecoded, st.FailedPackets, dc)
			return nil
		},
	}
}

func newDriversCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List the native driver libraries and whether they loaded",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DRIVER\tVENDOR\tLIBRARY\tLOADED")
			for _, d := range driverStatuses(a.registry) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", d.Name, d.Vendor, d.Library, d.Loaded)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if err := hwcodec.LoadErrors(); err != nil {
				a.log.Debug().Err(err).Msg("driver load errors")
			}
			return nil
		},
	}
}
