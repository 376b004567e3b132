// parcel-probe：一次性加载地籍文件并解析给定坐标（--points 或 PROBE_POINTS），逐行输出 JSON，用于上线前核对数据文件
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"parcel-api/internal/cadastre"
	"parcel-api/internal/config"
	"parcel-api/internal/logger"
	"parcel-api/internal/pointer"

	"github.com/jessevdk/go-flags"
)

// Options：命令行参数，未给出时回落到环境变量与 config 默认值
type Options struct {
	Points string `short:"p" long:"points" env:"PROBE_POINTS" description:"Points to resolve, \"lat,lon;lat,lon\""`
	File   string `short:"f" long:"file"   description:"GeoJSON file, overrides PARCELS_PATH"`
	URL    string `short:"u" long:"url"    description:"GeoJSON URL, overrides PARCELS_URL"`
}

type probeResult struct {
	Lat    float64                 `json:"lat"`
	Lon    float64                 `json:"lon"`
	Found  bool                    `json:"found"`
	Parcel *pointer.SelectedParcel `json:"parcel,omitempty"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.L().Error("config_error", "err", err)
		os.Exit(1)
	}
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if opts.File != "" {
		cfg.ParcelsPath, cfg.ParcelsURL = opts.File, ""
	}
	if opts.URL != "" {
		cfg.ParcelsURL = opts.URL
	}

	points, err := parsePoints(opts.Points)
	if err != nil {
		l.Error("probe_points_error", "err", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DatasetLoadTimeout)
	defer cancel()
	ds := cadastre.NewDataset(cadastre.NewSource(cfg.ParcelsURL, cfg.ParcelsPath),
		cadastre.WithLoadTimeout(cfg.DatasetLoadTimeout), cadastre.WithLogger(l))
	snap, err := ds.EnsureLoaded(ctx)
	if err != nil {
		l.Error("probe_load_error", "err", err)
		os.Exit(1)
	}
	l.Info("probe_dataset", "features", snap.Len(), "skipped", snap.Skipped, "digest", snap.Digest)

	enc := json.NewEncoder(os.Stdout)
	for _, p := range points {
		res := probeResult{Lat: p.Lat, Lon: p.Lng}
		if f, ok := cadastre.Resolve(snap, p.Point()); ok {
			sp := pointer.NewSelectedParcel(f, p)
			res.Found = true
			res.Parcel = &sp
		}
		if err := enc.Encode(res); err != nil {
			l.Error("probe_write_error", "err", err)
			os.Exit(1)
		}
	}
}

// parsePoints："lat,lon;lat,lon"，空白忽略
func parsePoints(s string) ([]pointer.LatLng, error) {
	var out []pointer.LatLng
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lat, lon, ok := strings.Cut(part, ",")
		if !ok {
			return nil, fmt.Errorf("point %q: want lat,lon", part)
		}
		la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: lat: %w", part, err)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: lon: %w", part, err)
		}
		out = append(out, pointer.LatLng{Lat: la, Lng: lo})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no points given")
	}
	return out, nil
}
