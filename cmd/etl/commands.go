package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/snowex-etl-service/internal/adapter/raster"
	"github.com/couchcryptid/snowex-etl-service/internal/adapter/tzlookup"
	"github.com/couchcryptid/snowex-etl-service/internal/domain"
	"github.com/couchcryptid/snowex-etl-service/internal/pipeline"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "etl",
		Short:         "Load SnowEx field data into the database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newProfilesCmd(), newPointsCmd(), newSitesCmd(), newRastersCmd())
	return root
}

// withApp builds the shared dependencies for one command run.
func withApp(fn func(ctx context.Context, a *app, files []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		files, err := expandFiles(args)
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd.Context(), a, files)
	}
}

// expandFiles resolves glob patterns, keeping literal paths as given so a
// missing file is reported by the batch.
func expandFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			out = append(out, arg)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

// uploadFlags binds the per-upload options shared by tabular files.
func uploadFlags(cmd *cobra.Command, opts *domain.Options, bf *batchFlags) *string {
	f := cmd.Flags()
	f.StringVar(&opts.Timezone, "timezone", "", "input timezone of the file, e.g. MST or US/Mountain")
	f.StringVar(&opts.OutTimezone, "out-timezone", "UTC", "timezone stored datetimes are converted to")
	f.StringVar(&opts.HeaderSep, "header-sep", ",", "separator between metadata keys and values")
	f.StringVar(&opts.DOI, "doi", "", "DOI of the published dataset")
	f.StringVar(&opts.Instrument, "instrument", "", "instrument name")
	f.StringVar(&opts.InstrumentModel, "instrument-model", "", "instrument model")
	f.StringVar(&opts.CampaignName, "campaign", "", "campaign name, overriding the file")
	f.BoolVar(&opts.Derived, "derived", false, "values are derived rather than measured")
	f.StringVar(&opts.SiteID, "site-id", "", "site id, overriding the file")
	f.StringVar(&opts.Observers, "observers", "", "comma separated observer names")
	f.StringVar(&opts.Comments, "comments", "", "comments stored with every row")
	f.IntVar(&opts.EPSG, "epsg", 0, "EPSG code, overriding the utm zone")
	f.IntVar(&opts.UTMZone, "utm-zone", 0, "force coordinates into this utm zone")
	f.BoolVar(&opts.SouthernHemisphere, "southern", false, "coordinates are in the southern hemisphere")
	f.BoolVar(&opts.AllowMapFailure, "allow-map-failure", false, "keep columns missing from the vocabulary")
	f.IntVar(&opts.FlagsMaxLength, "flags-max-length", 0, "maximum flags length (default FLAGS_MAX_LENGTH)")
	f.StringToStringVar(&opts.Units, "units", nil, "unit overrides, e.g. depth=cm")
	f.StringToStringVar(&opts.Extra, "set", nil, "header values to set, e.g. site_name=\"Grand Mesa\"")
	depthFormat := f.String("depth-format", "", "target depth format: snow_height or surface_datum")
	f.BoolVar(&bf.debug, "debug", false, "stop at the first failing file")
	f.IntVar(&bf.nFiles, "n-files", 0, "upload at most this many files")
	return depthFormat
}

// finish applies config defaults and parses the depth format.
func finish(a *app, opts domain.Options, depthFormat string) (domain.Options, error) {
	if opts.FlagsMaxLength == 0 {
		opts.FlagsMaxLength = a.cfg.FlagsMaxLength
	}
	if depthFormat != "" {
		df, err := domain.ParseDepthFormat(depthFormat)
		if err != nil {
			return opts, err
		}
		opts.DepthFormat = df
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func newProfilesCmd() *cobra.Command {
	var opts domain.Options
	var bf batchFlags
	cmd := &cobra.Command{
		Use:   "profiles FILE...",
		Short: "Upload snow pit and penetrometer profiles",
		Args:  cobra.MinimumNArgs(1),
	}
	depthFormat := uploadFlags(cmd, &opts, &bf)
	cmd.Flags().StringVar(&opts.Name, "name", "", "observation name prefix")
	cmd.RunE = withApp(func(ctx context.Context, a *app, files []string) error {
		o, err := finish(a, opts, *depthFormat)
		if err != nil {
			return err
		}
		u := pipeline.NewProfileUploader(a.store, a.vocab, a.logger, a.metrics)
		return a.runBatch(ctx, "profile", files, bf, func(ctx context.Context, path string) (pipeline.Result, error) {
			return u.Upload(ctx, path, o)
		})
	})
	return cmd
}

func newPointsCmd() *cobra.Command {
	var opts domain.Options
	var bf batchFlags
	cmd := &cobra.Command{
		Use:   "points FILE...",
		Short: "Upload point measurements such as depths and GPR",
		Args:  cobra.MinimumNArgs(1),
	}
	depthFormat := uploadFlags(cmd, &opts, &bf)
	cmd.Flags().StringVar(&opts.Name, "name", "", "observation name prefix")
	cmd.Flags().BoolVar(&opts.RowBasedTimezone, "row-based-timezone", false, "look up the timezone of every row from its location")
	cmd.Flags().BoolVar(&opts.RowBasedCRS, "row-based-crs", false, "ignore the header crs and use each row's utm zone")
	cmd.RunE = withApp(func(ctx context.Context, a *app, files []string) error {
		o, err := finish(a, opts, *depthFormat)
		if err != nil {
			return err
		}
		var tz pipeline.TimezoneLocator
		if o.RowBasedTimezone {
			finder, err := tzlookup.NewFinder()
			if err != nil {
				return err
			}
			cached, err := tzlookup.NewCachedLocator(finder, a.cfg.TimezoneCacheSize, a.metrics)
			if err != nil {
				return err
			}
			tz = cached
		}
		u := pipeline.NewPointUploader(a.store, tz, a.vocab, a.logger, a.metrics)
		return a.runBatch(ctx, "point", files, bf, func(ctx context.Context, path string) (pipeline.Result, error) {
			return u.Upload(ctx, path, o)
		})
	})
	return cmd
}

func newSitesCmd() *cobra.Command {
	var opts domain.Options
	var bf batchFlags
	cmd := &cobra.Command{
		Use:   "sites FILE...",
		Short: "Upload site details files",
		Args:  cobra.MinimumNArgs(1),
	}
	depthFormat := uploadFlags(cmd, &opts, &bf)
	cmd.RunE = withApp(func(ctx context.Context, a *app, files []string) error {
		o, err := finish(a, opts, *depthFormat)
		if err != nil {
			return err
		}
		u := pipeline.NewSiteUploader(a.store, a.vocab, a.logger, a.metrics)
		return a.runBatch(ctx, "site", files, bf, func(ctx context.Context, path string) (pipeline.Result, error) {
			return u.Upload(ctx, path, o)
		})
	})
	return cmd
}

func newRastersCmd() *cobra.Command {
	var opts pipeline.RasterOptions
	var bf batchFlags
	var typeCode, date string
	cmd := &cobra.Command{
		Use:   "rasters FILE...",
		Short: "Upload raster products (DEMs, SWE, UAVSAR)",
		Args:  cobra.MinimumNArgs(1),
	}
	f := cmd.Flags()
	f.StringVar(&typeCode, "type", "", "raster type: DEM, depth, swe, canopy_height, int, amp1, amp2, corr")
	f.StringVar(&date, "date", "", "acquisition date YYYY-MM-DD for single-file products")
	f.StringVar(&opts.AnnotationFile, "annotation", "", "UAVSAR annotation file")
	f.StringVar(&opts.Component, "component", "", "interferogram component: real or imaginary")
	f.IntVar(&opts.EPSG, "epsg", 0, "EPSG code of the raster")
	f.StringVar(&opts.CampaignName, "campaign", "", "campaign name")
	f.StringVar(&opts.Name, "name", "", "observation name")
	f.StringVar(&opts.DOI, "doi", "", "DOI of the published dataset")
	f.StringVar(&opts.Observers, "observers", "", "observer or organization")
	f.StringVar(&opts.Instrument, "instrument", "", "instrument name")
	f.StringVar(&opts.InstrumentModel, "instrument-model", "", "instrument model")
	f.StringVar(&opts.Comments, "comments", "", "description stored with the observation")
	f.BoolVar(&opts.Derived, "derived", false, "values are derived rather than measured")
	f.BoolVar(&bf.debug, "debug", false, "stop at the first failing file")
	f.IntVar(&bf.nFiles, "n-files", 0, "upload at most this many files")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("epsg")

	cmd.RunE = withApp(func(ctx context.Context, a *app, files []string) error {
		t, err := domain.RasterTypeByCode(typeCode)
		if err != nil {
			return err
		}
		opts.Type = t
		if date != "" {
			d, err := time.Parse(time.DateOnly, date)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", date, err)
			}
			opts.Date = d
		}

		persister, err := newRasterPersister(ctx, a)
		if err != nil {
			return err
		}
		u := pipeline.NewRasterUploader(a.store, persister, a.logger, a.metrics)
		return a.runBatch(ctx, "raster", files, bf, func(ctx context.Context, path string) (pipeline.Result, error) {
			return u.Upload(ctx, path, opts)
		})
	})
	return cmd
}

// newRasterPersister copies rasters to S3 when a bucket is configured and
// to the local raster directory otherwise.
func newRasterPersister(ctx context.Context, a *app) (*raster.Persister, error) {
	if a.cfg.RasterBucket != "" {
		s3, err := raster.NewS3Store(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		a.logger.Info("rasters go to s3", "bucket", a.cfg.RasterBucket, "prefix", a.cfg.RasterPrefix)
		return raster.NewPersister(s3, a.cfg.RasterTile, a.logger), nil
	}
	local, err := raster.NewLocalStore(a.cfg.RasterLocalDir)
	if err != nil {
		return nil, err
	}
	a.logger.Info("rasters go to local dir", "dir", a.cfg.RasterLocalDir)
	return raster.NewPersister(local, a.cfg.RasterTile, a.logger), nil
}
