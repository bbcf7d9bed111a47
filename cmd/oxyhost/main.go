// Command oxyhost is the thin host binary the engine is embedded in: it
// loads process-wide configuration, opens a window and GPU device, and
// wires the asset registry, GPU resource orchestrator, render graph, and
// frame driver into a running render loop.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oxy-forge/engine/asset"
	"github.com/oxy-forge/engine/common"
	"github.com/oxy-forge/engine/config"
	"github.com/oxy-forge/engine/engine/profiler"
	"github.com/oxy-forge/engine/engine/window"
	"github.com/oxy-forge/engine/frame"
	"github.com/oxy-forge/engine/gpu"
	"github.com/oxy-forge/engine/job"
	"github.com/oxy-forge/engine/rendergraph"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	root := &cobra.Command{
		Use:   "oxyhost",
		Short: "Host binary embedding the oxy-forge engine runtime",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML configuration file")
	root.AddCommand(newRunCommand())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("oxyhost exited with error")
	}
}

func newRunCommand() *cobra.Command {
	var assetRootOverride string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load configuration and run the engine render loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if assetRootOverride != "" {
				cfg.AssetRoot = assetRootOverride
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVar(&assetRootOverride, "asset-root", "", "override the configured asset root path")
	return cmd
}

func run(cfg config.Config) error {
	log.Info().Interface("config", cfg).Msg("starting oxyhost")

	jobs := job.New(cfg.WorkerPoolSize, 4096)

	win := window.NewWindow(
		window.WithTitle("oxyhost"),
		window.WithWidth(cfg.WindowWidth),
		window.WithHeight(cfg.WindowHeight),
	)
	defer win.Close()

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(win.SurfaceDescriptor())

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
	})
	if err != nil {
		return fmt.Errorf("oxyhost: request GPU adapter: %w", err)
	}

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "oxyhost device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		return fmt.Errorf("oxyhost: request GPU device: %w", err)
	}

	core := gpu.NewCore(device, device.GetQueue())
	defer core.Shutdown()

	registry, err := asset.NewRegistry(cfg.AssetRoot, jobs)
	if err != nil {
		return fmt.Errorf("oxyhost: open asset registry: %w", err)
	}
	hooks := asset.DefaultBuiltinTypeHooks()
	hooks.Texture = textureLoadProc(core)
	if err := registry.RegisterBuiltinTypes(hooks); err != nil {
		return fmt.Errorf("oxyhost: register builtin asset types: %w", err)
	}

	watcher, err := asset.NewWatcher(registry)
	if err != nil {
		return fmt.Errorf("oxyhost: start asset watcher: %w", err)
	}
	defer watcher.Close()

	graph := buildPresentGraph(core, cfg)
	if err := graph.Compile(); err != nil {
		return fmt.Errorf("oxyhost: compile render graph: %w", err)
	}

	driver, err := frame.NewDriver(core, graph, adapter, surface,
		uint32(cfg.WindowWidth), uint32(cfg.WindowHeight), cfg.SampleCount,
		cfg.DriverOption())
	if err != nil {
		return fmt.Errorf("oxyhost: create frame driver: %w", err)
	}

	win.SetResizeCallback(func(width, height int) {
		if err := driver.Resize(uint32(width), uint32(height), cfg.SampleCount); err != nil {
			log.Error().Err(err).Msg("resize failed")
		}
	})

	prof := profiler.NewProfiler(log.Logger)

	lastFrame := time.Now()
	win.SetUpdateCallback(func() {
		now := time.Now()
		dt := float32(now.Sub(lastFrame).Seconds())
		lastFrame = now

		if err := driver.RenderFrame(dt); err != nil {
			log.Error().Err(err).Msg("render frame failed")
		}
		prof.Tick()
	})

	win.ProcessMessages()
	return nil
}

// buildPresentGraph builds the minimal single-node render graph every
// oxyhost run presents: a clear pass writing the "present_color" attachment,
// which the frame driver then copies into the swapchain image. A host embedding the engine for a real scene replaces this
// with its own node graph built against the same Core and Graph types.
func buildPresentGraph(core gpu.Core, cfg config.Config) *rendergraph.Graph {
	g := rendergraph.New(core)

	clear, err := g.AddNode("present", rendergraph.NodeTypeGraphics, func(ctx *rendergraph.ExecuteContext) error {
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("oxyhost: add present node")
	}

	info := rendergraph.TextureInfo{
		Width:       uint32(cfg.WindowWidth),
		Height:      uint32(cfg.WindowHeight),
		Format:      gpu.FormatRGBA8Unorm,
		SampleCount: 1,
	}
	if _, err := g.AddOutput(clear, "present_color", info, gpu.AttachmentOpClear); err != nil {
		log.Fatal().Err(err).Msg("oxyhost: add present output")
	}
	if err := g.SetPresentableAttachment("present_color"); err != nil {
		log.Fatal().Err(err).Msg("oxyhost: set presentable attachment")
	}

	return g
}

// TextureAsset is the Data payload loaded "texture" assets carry: the GPU
// handle produced by Core.CreateTexture and the upload allocation group a
// caller should wait on via the timeline before sampling it.
type TextureAsset struct {
	Handle gpu.TextureHandle
	Upload gpu.AllocationGroup
}

// textureLoadProc decodes a PNG/JPEG file into RGBA8 pixels and uploads it
// through core, filling the "texture" asset type's Load hook that
// asset.DefaultBuiltinTypeHooks leaves nil since the asset package itself
// has no GPU dependency.
func textureLoadProc(core gpu.Core) asset.LoadProc {
	return func(path string, _ *asset.EmbeddedParams) (asset.LoadResult, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return asset.LoadResult{}, fmt.Errorf("oxyhost: read texture %q: %w", path, err)
		}

		imported := &common.ImportedTexture{Name: filepath.Base(path), Data: data}
		pixels, width, height, err := imported.Decode()
		if err != nil {
			return asset.LoadResult{}, fmt.Errorf("oxyhost: decode texture %q: %w", path, err)
		}

		handle, group, err := core.CreateTexture(gpu.TextureDescriptor{
			Label:  path,
			Width:  width,
			Height: height,
			Format: gpu.FormatRGBA8UnormSRGB,
			Data:   pixels,
		})
		if err != nil {
			return asset.LoadResult{}, fmt.Errorf("oxyhost: create texture %q: %w", path, err)
		}

		return asset.LoadResult{Success: true, Data: TextureAsset{Handle: handle, Upload: group}}, nil
	}
}
