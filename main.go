package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/pdok/rastercache/cache"
	"github.com/pdok/rastercache/config"
	"github.com/pdok/rastercache/epoch"
	"github.com/pdok/rastercache/levelstore"
	"github.com/pdok/rastercache/logging"
	"github.com/pdok/rastercache/mapslicehelp"
	"github.com/pdok/rastercache/metrics"
	"github.com/pdok/rastercache/processing"
	"github.com/pdok/rastercache/processing/geojson"
	"github.com/pdok/rastercache/processing/gpkg"
	"github.com/pdok/rastercache/raster"
)

const CONFIG string = `config`
const CACHEROOT string = `cacheRoot`
const RESOLUTION string = `resolution`
const VARIANT string = `variant`
const LOGLEVEL string = `logLevel`
const LOGFORMAT string = `logFormat`

const SOURCE string = `source`
const TABLE string = `table`
const VALUE string = `value`
const LEVEL string = `level`
const MODE string = `mode`
const APPEND string = `append`
const LABELS string = `labels`
const FILE string = `file`
const OUT string = `out`

// state is what the global flags resolve to, shared by the commands
type state struct {
	cfg      *config.Config
	log      *logrus.Logger
	registry *prometheus.Registry
}

func main() {
	_ = godotenv.Load(".env")

	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

//nolint:funlen
func newApp() *cli.App {
	r := &state{registry: prometheus.NewRegistry()}
	app := cli.NewApp()
	app.Name = "rastercache"
	app.Usage = "Rasterize geometries into per level grids and query them through a process cache"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    CONFIG,
			Aliases: []string{"c"},
			Usage:   "JSON config file",
			EnvVars: []string{strcase.ToScreamingSnake(CONFIG)},
		},
		&cli.StringFlag{
			Name:    CACHEROOT,
			Usage:   "Directory holding the grid files",
			EnvVars: []string{strcase.ToScreamingSnake(CACHEROOT)},
		},
		&cli.IntFlag{
			Name:    RESOLUTION,
			Aliases: []string{"r"},
			Usage:   "World units per cell edge (1..255)",
			EnvVars: []string{strcase.ToScreamingSnake(RESOLUTION)},
		},
		&cli.StringFlag{
			Name:    VARIANT,
			Usage:   "Grid file format: " + strings.Join(raster.VariantNames, ", "),
			EnvVars: []string{strcase.ToScreamingSnake(VARIANT)},
		},
		&cli.StringFlag{
			Name:    LOGLEVEL,
			Usage:   "trace, debug, info, warn or error",
			EnvVars: []string{strcase.ToScreamingSnake(LOGLEVEL)},
		},
		&cli.StringFlag{
			Name:    LOGFORMAT,
			Usage:   "text or json",
			EnvVars: []string{strcase.ToScreamingSnake(LOGFORMAT)},
		},
	}
	app.Before = r.setup

	levelFlags := []cli.Flag{
		&cli.IntFlag{
			Name:     LEVEL,
			Aliases:  []string{"l"},
			Usage:    "Level id",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(LEVEL)},
		},
		&cli.StringFlag{
			Name:     MODE,
			Aliases:  []string{"m"},
			Usage:    "Mode name, part of the grid file name",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(MODE)},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "build",
			Usage: "Rasterize a GeoPackage or GeoJSON source into the grid of a level and mode",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     SOURCE,
					Aliases:  []string{"s"},
					Usage:    "Source file, .gpkg or .geojson",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(SOURCE)},
				},
				&cli.StringFlag{
					Name:    TABLE,
					Aliases: []string{"t"},
					Usage:   "GeoPackage table, may be omitted when there is only one",
					EnvVars: []string{strcase.ToScreamingSnake(TABLE)},
				},
				&cli.StringFlag{
					Name:     VALUE,
					Usage:    "Column or property holding the cell value, " + geojson.IDProperty + " for the GeoJSON feature id",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(VALUE)},
				},
				&cli.BoolFlag{
					Name:    APPEND,
					Aliases: []string{"a"},
					Usage:   "Write into the existing grid instead of starting empty",
					EnvVars: []string{strcase.ToScreamingSnake(APPEND)},
				},
				&cli.BoolFlag{
					Name:    LABELS,
					Usage:   "Store values as labels (requires the labelled variant)",
					EnvVars: []string{strcase.ToScreamingSnake(LABELS)},
				},
			}, levelFlags...),
			Action: func(c *cli.Context) error {
				return dispatch(r.cfg.Variant,
					func(f raster.Format[uint16]) error { return build(c, r, f) },
					func(f raster.Format[uint32]) error { return build(c, r, f) })
			},
		},
		{
			Name:  "info",
			Usage: "Describe a grid file",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: LEVEL, Aliases: []string{"l"}, Usage: "Level id"},
				&cli.StringFlag{Name: MODE, Aliases: []string{"m"}, Usage: "Mode name"},
				&cli.StringFlag{Name: FILE, Aliases: []string{"f"}, Usage: "Grid file, instead of level and mode"},
			},
			Action: func(c *cli.Context) error {
				return dispatch(r.cfg.Variant,
					func(f raster.Format[uint16]) error { return info(c, r, f) },
					func(f raster.Format[uint32]) error { return info(c, r, f) })
			},
		},
		{
			Name:  "query",
			Usage: "Answer rectangles (minx,miny,maxx,maxy) or WKT geometries read from stdin, one per line, as JSON arrays",
			Flags: levelFlags,
			Action: func(c *cli.Context) error {
				return dispatch(r.cfg.Variant,
					func(f raster.Format[uint16]) error { return query(c, r, f) },
					func(f raster.Format[uint32]) error { return query(c, r, f) })
			},
		},
		{
			Name:  "image",
			Usage: "Write a grayscale PNG of a grid, framed by the configured max bounds",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     OUT,
					Aliases:  []string{"o"},
					Usage:    "PNG file to write",
					Required: true,
					EnvVars:  []string{strcase.ToScreamingSnake(OUT)},
				},
			}, levelFlags...),
			Action: func(c *cli.Context) error {
				return dispatch(r.cfg.Variant,
					func(f raster.Format[uint16]) error { return writeImage(c, r, f) },
					func(f raster.Format[uint32]) error { return writeImage(c, r, f) })
			},
		},
	}
	return app
}

// setup loads the config, lets the global flags override it and builds the logger
func (r *state) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String(CONFIG))
	if err != nil {
		return err
	}
	if c.IsSet(CACHEROOT) {
		cfg.CacheRoot = c.String(CACHEROOT)
	}
	if c.IsSet(RESOLUTION) {
		cfg.Resolution = c.Int(RESOLUTION)
	}
	if c.IsSet(VARIANT) {
		cfg.Variant = c.String(VARIANT)
	}
	if c.IsSet(LOGLEVEL) {
		cfg.Log.Level = c.String(LOGLEVEL)
	}
	if c.IsSet(LOGFORMAT) {
		cfg.Log.Format = c.String(LOGFORMAT)
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	for _, key := range cfg.UnknownKeys() {
		logger.Warnf("unknown config key %q", key)
	}
	r.cfg, r.log = cfg, logger
	return nil
}

var variants = mapslicehelp.AsSet(raster.VariantNames)

func dispatch(variant string, narrow func(raster.Format[uint16]) error, wide func(raster.Format[uint32]) error) error {
	if _, ok := variants[variant]; !ok {
		return fmt.Errorf("unknown variant %q, expected one of %s", variant, strings.Join(raster.VariantNames, ", "))
	}
	switch variant {
	case raster.Wide.VariantName():
		return wide(raster.Wide)
	case raster.Labelled.VariantName():
		return narrow(raster.Labelled)
	default:
		return narrow(raster.Plain)
	}
}

func openSource(c *cli.Context) (processing.Source, io.Closer, error) {
	path := c.String(SOURCE)
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("error opening source: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpkg":
		source, err := gpkg.Open(path)
		if err != nil {
			return nil, nil, err
		}
		if err = source.SelectTable(c.String(TABLE)); err != nil {
			_ = source.Close()
			return nil, nil, err
		}
		source.ValueColumn = c.String(VALUE)
		return source, source, nil
	case ".geojson", ".json":
		file, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return geojson.NewSource(bufio.NewReader(file), c.String(VALUE)), file, nil
	}
	return nil, nil, fmt.Errorf("unsupported source %s, expected .gpkg or .geojson", path)
}

func build[T raster.Cell](c *cli.Context, r *state, format raster.Format[T]) error {
	labels := c.Bool(LABELS)
	if labels && format.VariantID() != raster.Labelled.VariantID() {
		return fmt.Errorf("--%s requires variant %s, not %s", LABELS, raster.Labelled.VariantName(), format.VariantName())
	}
	level, mode := c.Int(LEVEL), c.String(MODE)
	store := levelstore.New(r.cfg.CacheRoot, format)
	path, err := store.PathFor(level, mode)
	if err != nil {
		return err
	}

	grid, err := raster.New[T](r.cfg.Resolution)
	if err != nil {
		return err
	}
	if c.Bool(APPEND) {
		existing, err := store.Load(level, mode)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			r.log.Infof("no grid at %s yet, starting empty", path)
		case err != nil:
			return err
		case existing.Resolution() != r.cfg.Resolution:
			return fmt.Errorf("existing grid has resolution %d, configured is %d", existing.Resolution(), r.cfg.Resolution)
		default:
			grid = existing
		}
	}

	source, closer, err := openSource(c)
	if err != nil {
		return err
	}
	defer closer.Close()

	r.log.Infof("=== start rasterizing %s into %s ===", c.String(SOURCE), path)
	stats, err := processing.Rasterize(source, grid, processing.Options{
		Labels:        labels,
		ProgressEvery: 10000,
		Log:           r.log,
	})
	if err != nil {
		return err
	}
	if err = store.Save(grid, level, mode); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"read":    stats.Read,
		"written": stats.Written,
		"skipped": stats.Skipped,
		"bounds":  grid.Bounds(),
	}).Info("=== done rasterizing ===")

	if r.cfg.Epoch.Kind == "file" {
		token := epoch.NewToken()
		if err = epoch.WriteFile(r.cfg.Epoch.File, token); err != nil {
			return fmt.Errorf("publish epoch: %w", err)
		}
		r.log.Infof("published epoch %s", token)
	}
	return nil
}

func loadGrid[T raster.Cell](c *cli.Context, r *state, format raster.Format[T]) (*raster.Grid[T], error) {
	if path := c.String(FILE); path != "" {
		return raster.Open(path, format)
	}
	if !c.IsSet(MODE) {
		return nil, fmt.Errorf("either --%s or --%s and --%s is required", FILE, LEVEL, MODE)
	}
	return levelstore.New(r.cfg.CacheRoot, format).Load(c.Int(LEVEL), c.String(MODE))
}

func info[T raster.Cell](c *cli.Context, r *state, format raster.Format[T]) error {
	grid, err := loadGrid(c, r, format)
	if err != nil {
		return err
	}
	w := c.App.Writer
	x, y := grid.Origin()
	fmt.Fprintf(w, "file:       %s\n", grid.Filename())
	fmt.Fprintf(w, "variant:    %s (%d)\n", format.VariantName(), format.VariantID())
	fmt.Fprintf(w, "resolution: %d\n", grid.Resolution())
	fmt.Fprintf(w, "origin:     %d %d\n", x, y)
	fmt.Fprintf(w, "size:       %d x %d\n", grid.Width(), grid.Height())
	fmt.Fprintf(w, "bounds:     %v\n", grid.Bounds().ToWorld(grid.Resolution()))
	fmt.Fprintf(w, "labels:     %d\n", len(grid.Labels()))

	histogram := mapslicehelp.Histogram(grid.Cells())
	if histogram.Len() == 0 {
		return nil
	}
	value, count, winners := mapslicehelp.FindLastKeyWithMaxValue(histogram)
	fmt.Fprintf(w, "most common: %d (%d cells)\n", value, count)
	if winners > 1 {
		fmt.Fprintf(w, "             %d values share that count\n", winners)
	}
	fmt.Fprintln(w, "values:")
	for p := histogram.Oldest(); p != nil; p = p.Next() {
		label := ""
		if id, ok := grid.LabelID(p.Key); ok {
			label = fmt.Sprintf(" (label %d)", id)
		}
		fmt.Fprintf(w, "  %d%s: %d\n", p.Key, label, p.Value)
	}
	return nil
}

// parseKey reads "minx,miny,maxx,maxy" as a rectangle and anything else as WKT
func parseKey(line string) (any, error) {
	parts := strings.Split(line, ",")
	if len(parts) == 4 {
		var e geom.Extent
		var err error
		for i, part := range parts {
			if e[i], err = strconv.ParseFloat(strings.TrimSpace(part), 64); err != nil {
				break
			}
		}
		if err == nil {
			return e, nil
		}
	}
	return wkt.DecodeString(line)
}

func query[T raster.Cell](c *cli.Context, r *state, format raster.Format[T]) error {
	epochs, closer, err := epoch.Open(r.cfg.Epoch)
	if err != nil {
		return err
	}
	defer closer.Close()
	store := levelstore.New(r.cfg.CacheRoot, format)
	grids := cache.New[T](store, epochs, r.log, metrics.New(r.registry))
	level, mode := c.Int(LEVEL), c.String(MODE)

	out := json.NewEncoder(c.App.Writer)
	scanner := bufio.NewScanner(c.App.Reader)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, err := parseKey(line)
		if err != nil {
			r.log.WithError(err).Warnf("cannot parse %q", line)
			_ = out.Encode(nil)
			continue
		}
		grid, err := grids.Get(c.Context, level, mode)
		if err != nil {
			return err
		}
		values, err := grid.Read(key)
		if err != nil {
			r.log.WithError(err).Warnf("cannot read %q", line)
			_ = out.Encode(nil)
			continue
		}
		if err = out.Encode(values); err != nil {
			return err
		}
	}
	r.log.Debugf("answered from %d cached grids, epoch %q", grids.Len(), grids.Epoch())
	return scanner.Err()
}

func writeImage[T raster.Cell](c *cli.Context, r *state, format raster.Format[T]) error {
	grid, err := levelstore.New(r.cfg.CacheRoot, format).Load(c.Int(LEVEL), c.String(MODE))
	if err != nil {
		return err
	}
	frame := grid.Bounds().ToWorld(grid.Resolution())
	if len(r.cfg.MaxBounds) == 4 {
		frame = geom.Extent{r.cfg.MaxBounds[0], r.cfg.MaxBounds[1], r.cfg.MaxBounds[2], r.cfg.MaxBounds[3]}
	}

	file, err := os.Create(c.String(OUT))
	if err != nil {
		return err
	}
	if err = png.Encode(file, grid.Image(frame)); err != nil {
		_ = file.Close()
		return err
	}
	r.log.Infof("wrote %s", c.String(OUT))
	return file.Close()
}
