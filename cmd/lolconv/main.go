package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/binzume/lolmodelconv/converter"
	"github.com/binzume/lolmodelconv/dae"
	"github.com/binzume/lolmodelconv/md2"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

type arguments struct {
	skl, skn string
	anms     []string
	output   string
}

func isOutput(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md2", ".dae", ".glb":
		return true
	}
	return false
}

func parseArgs(args []string) (*arguments, error) {
	a := &arguments{}
	for i, arg := range args {
		switch strings.ToLower(filepath.Ext(arg)) {
		case ".skl":
			a.skl = arg
		case ".skn":
			a.skn = arg
		case ".anm":
			a.anms = append(a.anms, arg)
		default:
			if i != len(args)-1 || !isOutput(arg) {
				return nil, errors.Errorf("unexpected argument: %s", arg)
			}
			a.output = arg
		}
	}
	if a.skl == "" || a.skn == "" {
		return nil, errors.New("both .skl and .skn are required")
	}
	if a.output == "" {
		a.output = strings.TrimSuffix(a.skn, filepath.Ext(a.skn)) + ".md2"
	}
	return a, nil
}

func create(path string, write func(w *bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func save(m *converter.Model, conf *converter.Config, output, textureDir string, logger *log.Logger) error {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".md2":
		f, err := converter.NewLOLToMD2Converter(conf, textureDir, logger).Convert(m)
		if err != nil {
			return err
		}
		logger.Info("writing md2", "frames", len(f.Frames), "vertices", f.NumVertices(), "triangles", len(f.Triangles))
		return create(output, func(w *bufio.Writer) error { return md2.Write(f, w) })
	case ".dae":
		doc, err := converter.NewLOLToDAEConverter(conf, logger).Convert(m)
		if err != nil {
			return err
		}
		logger.Info("writing collada", "joints", len(doc.Joints), "vertices", doc.NumVertices(), "animations", len(doc.Motions))
		return create(output, func(w *bufio.Writer) error { return dae.Write(doc, w) })
	case ".glb":
		doc, err := converter.NewLOLToGLTFConverter(conf, textureDir, logger).Convert(m)
		if err != nil {
			return err
		}
		logger.Info("writing glb", "nodes", len(doc.Nodes), "animations", len(doc.Animations))
		return gltf.SaveBinary(doc, output)
	}
	return errors.Errorf("unsupported output type: %s", filepath.Ext(output))
}

func saveSkeleton(m *converter.Model, conf *converter.Config, output string, logger *log.Logger) error {
	if strings.ToLower(filepath.Ext(output)) != ".md2" {
		return errors.Errorf("joint markers are written as .md2: %s", output)
	}
	f, err := converter.NewLOLToMD2Converter(conf, "", logger).ConvertSkeleton(m)
	if err != nil {
		return err
	}
	logger.Info("writing joint markers", "frames", len(f.Frames), "markers", f.NumVertices()/4)
	return create(output, func(w *bufio.Writer) error { return md2.Write(f, w) })
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] model.skl model.skn [anim.anm ...] [output.{md2,dae,glb}]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s -dump|-verify file...\n", os.Args[0])
		flag.PrintDefaults()
	}
	confPath := flag.String("config", "", "YAML config file")
	strict := flag.Bool("strict", false, "fail on anomalous bone indices and weights")
	frames := flag.Int("frames", -1, "max frames per animation (0: all)")
	skeleton := flag.String("skeleton", "", "also write joint markers to this .md2 file")
	texture := flag.String("texture", "", "texture for skin size and glb embedding")
	workers := flag.Int("workers", -1, "posing workers (0: GOMAXPROCS)")
	verbose := flag.Bool("v", false, "debug logging")
	dump := flag.Bool("dump", false, "print decoded records")
	verify := flag.Bool("verify", false, "check that decoding and encoding reproduces each file")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "lolconv",
	})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		return
	}

	if *dump || *verify {
		failed := false
		for _, path := range flag.Args() {
			if *dump {
				if err := dumpFile(path, os.Stdout); err != nil {
					logger.Error("dump", "err", err)
					failed = true
				}
			}
			if *verify {
				sum, err := verifyFile(path)
				if err != nil {
					logger.Error("verify", "err", err)
					failed = true
					continue
				}
				logger.Info("verified", "file", path, "md5", fmt.Sprintf("%x", sum))
			}
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	args, err := parseArgs(flag.Args())
	if err != nil {
		flag.Usage()
		logger.Fatal(err)
	}

	conf := converter.DefaultConfig()
	textureDir := ""
	if *confPath != "" {
		if conf, err = converter.LoadConfig(*confPath); err != nil {
			logger.Fatal(err)
		}
		textureDir = filepath.Dir(*confPath)
	}
	if *strict {
		conf.Strict = true
	}
	if *frames >= 0 {
		conf.MaxFrames = *frames
	}
	if *workers >= 0 {
		conf.Workers = *workers
	}
	if *texture != "" {
		conf.Texture = *texture
		textureDir = ""
	}
	for _, anm := range args.anms {
		conf.AddAnimation(converter.BaseName(anm), anm)
	}

	m, err := converter.LoadModel(args.skl, args.skn)
	if err != nil {
		logger.Fatal(err)
	}
	srcs, err := conf.AnimationSources()
	if err != nil {
		logger.Fatal(err)
	}
	if err := m.LoadAnimations(srcs); err != nil {
		logger.Fatal(err)
	}
	logger.Debug("model loaded", "name", m.Name, "bones", len(m.Skeleton.Bones), "vertices", len(m.Mesh.Vertices), "animations", len(m.Animations))

	logger.Info("converting", "out", args.output)
	if err := save(m, conf, args.output, textureDir, logger); err != nil {
		logger.Fatal(err)
	}
	if *skeleton != "" {
		if err := saveSkeleton(m, conf, *skeleton, logger); err != nil {
			logger.Fatal(err)
		}
	}
}
