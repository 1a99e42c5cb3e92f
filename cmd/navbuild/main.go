// Command navbuild voxelizes an OBJ mesh into a navigation mesh.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gorustyt/gonavvoxel/common/logs"
	"github.com/gorustyt/gonavvoxel/common/rw"
	"github.com/gorustyt/gonavvoxel/debug_utils"
	"github.com/gorustyt/gonavvoxel/geom"
	"github.com/gorustyt/gonavvoxel/recast"
)

type fileConfig struct {
	Build recast.RcConfig `yaml:"build"`
	Log   logs.Config     `yaml:"log"`
}

type options struct {
	config     string
	mesh       string
	scale      float32
	dump       string
	image      string
	imageMode  string
	imageScale int
	obj        string
	report     string
	logLevel   string
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := pflag.NewFlagSet("navbuild", pflag.ContinueOnError)
	fs.StringVarP(&o.config, "config", "c", "", "YAML file with build and log settings")
	fs.StringVarP(&o.mesh, "mesh", "m", "", "input Wavefront OBJ mesh")
	fs.Float32Var(&o.scale, "scale", 1, "scale applied to the mesh vertices")
	fs.StringVar(&o.dump, "dump", "", "write the compact heightfield snapshot here")
	fs.StringVar(&o.image, "image", "", "render the compact heightfield to this .png, .bmp or .tiff file")
	fs.StringVar(&o.imageMode, "image-mode", "regions", "image colouring: height, areas, regions or distance")
	fs.IntVar(&o.imageScale, "image-scale", 4, "image pixels per cell")
	fs.StringVar(&o.obj, "obj", "", "write the polygon mesh as OBJ here")
	fs.StringVar(&o.report, "report", "", "write the protobuf build report here")
	fs.StringVar(&o.logLevel, "log-level", "", "override the configured log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.mesh == "" {
		return nil, errors.New("--mesh is required")
	}
	return o, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	cfg := fileConfig{Build: recast.DefaultRcConfig(), Log: logs.DefaultConfig()}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Build.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "navbuild:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	fc, err := loadFileConfig(o.config)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		fc.Log.Level = o.logLevel
	}
	logger, err := logs.New(fc.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	f, err := os.Open(o.mesh)
	if err != nil {
		return err
	}
	g, err := geom.ParseObj(f, o.scale)
	f.Close()
	if err != nil {
		return fmt.Errorf("load %s: %w", o.mesh, err)
	}
	logger.Info("mesh loaded", zap.String("file", o.mesh),
		zap.Int("verts", g.VertCount()), zap.Int("tris", g.TriCount()))

	times := &recast.RcBuildTimes{}
	ctx := recast.NewRcContext(logger, times)
	res, buildErr := recast.RcBuildNavMesh(ctx, fc.Build, g.Verts, g.Tris, nil)
	debug_utils.DuLogBuildTimes(logger, times)

	// Artefacts are written even after a failure, from whatever was built.
	if res != nil {
		return multierr.Append(buildErr, writeArtefacts(o, res, times))
	}
	return buildErr
}

func writeArtefacts(o *options, res *recast.RcNavMeshResult, times *recast.RcBuildTimes) error {
	var errs []error
	if o.dump != "" && res.Compact != nil {
		w := rw.NewBinWriter()
		if err := debug_utils.DuDumpCompactHeightfield(res.Compact, w); err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, writeFile(o.dump, w))
		}
	}
	if o.image != "" && res.Compact != nil {
		errs = append(errs, writeImage(o, res.Compact))
	}
	if o.obj != "" && res.PolyMesh != nil {
		w := rw.NewBinWriter()
		if err := debug_utils.DuDumpPolyMeshToObj(res.PolyMesh, w); err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, writeFile(o.obj, w))
		}
	}
	if o.report != "" {
		data, err := recast.NewRcBuildReport(res, times).Marshal()
		if err == nil {
			err = os.WriteFile(o.report, data, 0o644)
		}
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func writeImage(o *options, chf *recast.RcCompactHeightfield) error {
	mode, err := debug_utils.DuParseImageMode(o.imageMode)
	if err != nil {
		return err
	}
	img, err := debug_utils.DuRenderCompactHeightfield(chf, debug_utils.DuImageOptions{
		Mode:  mode,
		Scale: o.imageScale,
		Label: filepath.Base(o.mesh) + " " + mode.String(),
	})
	if err != nil {
		return err
	}
	f, err := os.Create(o.image)
	if err != nil {
		return err
	}
	if err := debug_utils.DuEncodeImage(f, img, filepath.Ext(o.image)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFile(path string, w *rw.ReaderWriter) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
