package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/akmonengine/quill"
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/catalog"
	"github.com/akmonengine/quill/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// Decomposes an L-shaped prism, collides the compound against a box, stores
// it in a YAML catalog and optionally writes the input mesh as OBJ.
func main() {
	configPath := flag.String("config", "", "TOML configuration")
	catalogPath := flag.String("catalog", "shapes.yaml", "catalog output")
	objPath := flag.String("obj", "", "optional OBJ output of the input mesh")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if err := run(*configPath, *catalogPath, *objPath, logger); err != nil {
		logger.Error("decompose failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, catalogPath, objPath string, logger *slog.Logger) error {
	cfg := quill.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = quill.LoadConfig(configPath); err != nil {
			return err
		}
	}

	prism, err := mesh.Extrude([]mgl64.Vec2{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}, 1, mesh.DefaultOptions())
	if err != nil {
		return err
	}
	if objPath != "" {
		f, err := os.Create(objPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := prism.WriteOBJ(f); err != nil {
			return err
		}
	}

	opts := cfg.Decompose
	opts.Logger = logger
	compound, err := quill.BuildCompoundWithOptions(prism, opts)
	if err != nil {
		return err
	}
	logger.Info("decomposed", "pieces", len(compound.Children), "volume", compound.Volume(), "mesh_volume", prism.Volume())

	shapes := catalog.New(logger)
	shared, _ := shapes.Intern(compound)
	fmt.Printf("compound %s: %d pieces\n", shared.Signature(), len(shared.(*actor.Compound).Children))

	box := &actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}
	points := quill.Collide(shared, actor.NewTransform(), box, actor.NewPose(mgl64.Vec3{1.5, 1.5, 1.2}, mgl64.QuatIdent()), 0)
	for _, p := range points {
		fmt.Printf("  contact child=%d position=%v depth=%.4f\n", p.ChildA, p.Position, p.Depth)
	}

	return shapes.SaveFile(catalogPath)
}
