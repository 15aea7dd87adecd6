package cli

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/config"
	"github.com/SmitUplenchwar2687/meshflow/internal/replay"
	"github.com/SmitUplenchwar2687/meshflow/internal/session"
	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
)

func newRenderCmd(root *rootOptions) *cobra.Command {
	var (
		file   string
		outDir string
		every  int
		engine engineOptions
		render renderOptions
		filter filterOptions
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a scenario to PNG frames",
		Long: `Plays a scenario on a virtual clock and writes every frame as a PNG image,
traffic painted over the graph. Frames are numbered from 1 and can be joined
into a video, e.g. with ffmpeg -i frame-%05d.png.`,
		Example: `  meshflow render --scenario mesh.yaml --out frames
  meshflow render --scenario mesh.yaml --width 1280 --height 720 --fps 30 --to 5s
  meshflow render --scenario mesh.yaml --every 10 --skin holiday`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--scenario is required")
			}
			if every < 1 {
				return fmt.Errorf("--every must be at least 1, got %d", every)
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			engine.applyConfigIfUnset(cmd, cfg.Engine)
			cfg.Engine = engine.toConfig()
			render.applyConfigIfUnset(cmd, cfg.Render)
			cfg.Render = render.toConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			written, err := runRender(cmd, file, outDir, every, cfg, filter.toFilter())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d frames to %s\n", written, outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "scenario", "", "path to a scenario file, JSON or YAML (required)")
	cmd.Flags().StringVar(&outDir, "out", "frames", "output directory")
	cmd.Flags().IntVar(&every, "every", 1, "write every Nth frame")
	engine.addFlags(cmd)
	render.addFlags(cmd)
	filter.addFlags(cmd)

	return cmd
}

func runRender(cmd *cobra.Command, file, outDir string, every int, cfg config.Config, filter replay.Filter) (int, error) {
	bg, err := canvas.ParseColor(cfg.Render.Background)
	if err != nil {
		return 0, err
	}
	surface, err := canvas.NewRaster(cfg.Render.Width, cfg.Render.Height, cfg.Render.Supersample, bg)
	if err != nil {
		return 0, err
	}

	player, sess, err := newPlayback(file, cfg.Engine, 0, filter, surface)
	if err != nil {
		return 0, err
	}

	// The graph changes only when the player applies an update, so the
	// backdrop is painted then and reused for every frame.
	var backdropErr error
	player.OnApply(func(snapshot.Graph) {
		if backdropErr != nil {
			return
		}
		backdropErr = paintBackdrop(surface, sess, cfg.Render)
	})

	written := 0
	var writeErr error
	_, err = player.Run(cmd.Context(), sess, func(res replay.Result) {
		if writeErr != nil || res.Frame.Seq%uint64(every) != 0 {
			return
		}
		written++
		writeErr = writeFrame(surface, filepath.Join(outDir, fmt.Sprintf("frame-%05d.png", written)))
	})
	if err != nil {
		return written, err
	}
	if backdropErr != nil {
		return written, fmt.Errorf("painting graph: %w", backdropErr)
	}
	if writeErr != nil {
		return written, writeErr
	}

	log.WithFields(log.Fields{"frames": written, "dir": outDir}).Debug("render finished")
	return written, nil
}

// paintBackdrop draws the graph on its own raster and installs it under
// the traffic layer.
func paintBackdrop(surface *canvas.Raster, sess *session.Session, cfg config.RenderConfig) error {
	bg, err := canvas.ParseColor(cfg.Background)
	if err != nil {
		return err
	}
	layer, err := canvas.NewRaster(cfg.Width, cfg.Height, cfg.Supersample, bg)
	if err != nil {
		return err
	}
	layer.SetTransform(sess.Layout().Transform())
	sess.Draw(layer.Context())
	surface.SetBackdrop(layer.Image())
	return nil
}

func writeFrame(surface *canvas.Raster, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating frame file: %w", err)
	}
	if err := surface.WritePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
