// Package processing takes care of the logistics around reading features from a Source and writing
// them into a grid.
package processing

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/pdok/rastercache/geomhelp"
	"github.com/pdok/rastercache/prepared"
	"github.com/pdok/rastercache/raster"
)

var ErrValueOverflow = errors.New("value does not fit the grid's cells")

type Options struct {
	// Labels maps feature values through the grid's label table instead of storing them as is
	Labels bool
	// ProgressEvery logs a progress line every so many features, 0 for never
	ProgressEvery uint64
	Log           logrus.FieldLogger
}

type Stats struct {
	Read    uint64
	Written uint64
	Skipped uint64
}

// readFeaturesFromSource reads all features and closes the channel when done
func readFeaturesFromSource(source Source, features chan<- Feature, readErr chan<- error) {
	defer close(features)
	readErr <- source.ReadFeatures(features)
}

// Rasterize writes the features of source into grid, in source order, so later features win where they overlap.
// Features without a value or with an unsupported geometry are skipped and counted.
func Rasterize[T raster.Cell](source Source, grid *raster.Grid[T], opts Options) (Stats, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	features := make(chan Feature)
	readErr := make(chan error, 1)
	go readFeaturesFromSource(source, features, readErr)

	stats, err := writeFeatures(features, grid, opts, log)
	if err != nil {
		// drain, so the source can finish
		for range features {
		}
		<-readErr
		return stats, err
	}
	if err = <-readErr; err != nil {
		return stats, fmt.Errorf("read features: %w", err)
	}

	log.Infof("    total features: %d", stats.Read)
	log.Infof("           written: %d", stats.Written)
	log.Infof("           skipped: %d", stats.Skipped)
	return stats, nil
}

func writeFeatures[T raster.Cell](features <-chan Feature, grid *raster.Grid[T], opts Options, log logrus.FieldLogger) (Stats, error) {
	var stats Stats
	for feature := range features {
		stats.Read++
		if opts.ProgressEvery > 0 && stats.Read%opts.ProgressEvery == 0 {
			log.Infof("      processed %d features", stats.Read)
		}

		geometry := feature.Geometry()
		if geometry == nil {
			stats.Skipped++
			log.Debugf("feature %d has no geometry", stats.Read)
			continue
		}
		value, err := feature.Value()
		if errors.Is(err, ErrNoValue) {
			stats.Skipped++
			log.Debugf("feature %d has no value", stats.Read)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("feature %d: %w", stats.Read, err)
		}
		cell, err := cellValue(grid, value, opts.Labels)
		if err != nil {
			return stats, fmt.Errorf("feature %d: %w", stats.Read, err)
		}

		err = grid.Write(geometry, cell)
		if errors.Is(err, prepared.ErrUnsupportedGeometry) {
			stats.Skipped++
			log.WithField("geometry", geomhelp.WktTruncated(geometry, 80)).Warnf("skipping feature %d: %T is not supported", stats.Read, geometry)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("feature %d (%s): %w", stats.Read, geomhelp.WktTruncated(geometry, 80), err)
		}
		stats.Written++
	}
	return stats, nil
}

func cellValue[T raster.Cell](grid *raster.Grid[T], value int64, labels bool) (T, error) {
	if labels {
		if value < 0 || value > math.MaxUint32 {
			return 0, fmt.Errorf("%w: label id %d", ErrValueOverflow, value)
		}
		return grid.Label(uint32(value))
	}
	if value < 0 || int64(T(value)) != value {
		return 0, fmt.Errorf("%w: %d", ErrValueOverflow, value)
	}
	return T(value), nil
}
