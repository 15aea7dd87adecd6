package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
	"github.com/SmitUplenchwar2687/meshflow/internal/clock"
	"github.com/SmitUplenchwar2687/meshflow/internal/config"
	"github.com/SmitUplenchwar2687/meshflow/internal/recorder"
	"github.com/SmitUplenchwar2687/meshflow/internal/replay"
	"github.com/SmitUplenchwar2687/meshflow/internal/session"
	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

func newSimulateCmd(root *rootOptions) *cobra.Command {
	var (
		file       string
		speed      float64
		verbose    bool
		outputJSON bool
		noColor    bool
		recordFile string
		engine     engineOptions
		filter     filterOptions
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a scenario on a virtual clock",
		Long: `Plays a scenario through the traffic engine on a virtual clock, one frame
interval at a time, applying its edge updates at their offsets.

Minutes of traffic are simulated in milliseconds unless a speed is set.

Speed: 0 = instant, 1 = real-time, 10 = 10x`,
		Example: `  meshflow simulate --scenario mesh.yaml
  meshflow simulate --scenario mesh.yaml --seed 7 --json
  meshflow simulate --scenario mesh.yaml --protocols grpc --dim-others --from 10s --to 20s
  meshflow simulate --scenario mesh.yaml --record frames.msgpack.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--scenario is required")
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			engine.applyConfigIfUnset(cmd, cfg.Engine)
			cfg.Engine = engine.toConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if noColor {
				color.NoColor = true
			}

			out := cmd.OutOrStdout()
			runID := uuid.NewString()

			surface := canvas.NewRecording()
			var rec *recorder.Recorder
			var opts []traffic.Option
			var obs *recorder.Observer
			if recordFile != "" {
				rec = recorder.New(nil)
				obs = recorder.NewObserver(rec, nil, surface)
				opts = append(opts, traffic.WithObserver(obs))
			}

			player, sess, err := newPlayback(file, cfg.Engine, speed, filter.toFilter(), surface, opts...)
			if err != nil {
				return err
			}
			if obs != nil {
				obs.Bind(sess)
			}

			log.WithFields(log.Fields{"run": runID, "scenario": file}).Debug("simulation started")
			if !outputJSON {
				fmt.Fprintf(out, "Simulating %s at %s (run %s)...\n\n", file, speedLabel(speed), runID)
			}

			var results []replay.Result
			summary, err := player.Run(cmd.Context(), sess, func(res replay.Result) {
				if outputJSON {
					if verbose {
						results = append(results, res)
					}
					return
				}
				if verbose || res.Applied {
					printFrame(out, res)
				}
			})
			if err != nil {
				return err
			}

			if rec != nil {
				if err := rec.ExportFile(recordFile); err != nil {
					return fmt.Errorf("exporting frames: %w", err)
				}
				log.WithFields(log.Fields{"frames": rec.Len(), "path": recordFile}).Info("frames exported")
			}

			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(SimulationReport{
					RunID:   runID,
					Results: results,
					Summary: summary,
				})
			}

			printSummary(out, runID, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "scenario", "", "path to a scenario file, JSON or YAML (required)")
	cmd.Flags().Float64Var(&speed, "speed", 0, "playback speed (0=instant, 1=real-time, 10=10x)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every frame")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "output results as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.Flags().StringVar(&recordFile, "record", "", "export played frames to this file (.json, .msgpack, optionally .zst)")
	engine.addFlags(cmd)
	filter.addFlags(cmd)

	return cmd
}

// SimulationReport is the JSON output of simulate.
type SimulationReport struct {
	RunID   string          `json:"run_id"`
	Results []replay.Result `json:"results,omitempty"`
	Summary *replay.Summary `json:"summary"`
}

// newPlayback loads a scenario and builds a stopped session on a fresh
// virtual clock, wired so the player can follow its frames. Observers in
// opts see each frame before the player does.
func newPlayback(path string, engine config.EngineConfig, speed float64, filter replay.Filter, surface canvas.Surface, opts ...traffic.Option) (*replay.Player, *session.Session, error) {
	sc, err := snapshot.LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}

	vc := clock.NewVirtualClock(time.Now().Truncate(time.Second))
	player := replay.New(sc, vc, speed, filter)

	sess, err := session.New(surface, engine, append(opts, player.Options()...)...)
	if err != nil {
		return nil, nil, err
	}
	return player, sess, nil
}

func speedLabel(speed float64) string {
	if speed <= 0 {
		return "full speed"
	}
	return fmt.Sprintf("%gx", speed)
}

func printFrame(out io.Writer, res replay.Result) {
	line := fmt.Sprintf("  [%8s] #%05d points=%-4d spawned=%-3d finished=%-3d",
		res.Offset.Round(time.Millisecond), res.Frame.Seq, res.Frame.Points, res.Frame.Spawned, res.Frame.Finished)
	if res.Applied {
		color.New(color.FgYellow).Fprintf(out, "%s update applied\n", line)
		return
	}
	fmt.Fprintln(out, line)
}

func printSummary(out io.Writer, runID string, s *replay.Summary) {
	heading := color.New(color.FgCyan, color.Bold)
	errs := color.New(color.FgRed)
	ok := color.New(color.FgGreen)

	fmt.Fprintln(out)
	heading.Fprintln(out, "--- Simulation Summary ---")
	fmt.Fprintf(out, "  Run:            %s\n", runID)
	if s.Scenario != "" {
		fmt.Fprintf(out, "  Scenario:       %s\n", s.Scenario)
	}
	fmt.Fprintf(out, "  Frames:         %d\n", s.Frames)
	fmt.Fprintf(out, "  Updates:        %d\n", s.Updates)
	fmt.Fprintf(out, "  Spawned:        %d\n", s.Spawned)
	fmt.Fprintf(out, "  Finished:       %d\n", s.Finished)
	fmt.Fprintf(out, "  Virtual time:   %s\n", s.Duration)
	fmt.Fprintf(out, "  Wall time:      %s\n", s.WallDuration.Round(time.Millisecond))

	if len(s.PerEdge) == 0 {
		return
	}

	ids := make([]string, 0, len(s.PerEdge))
	width := 0
	for id := range s.PerEdge {
		ids = append(ids, id)
		width = max(width, len(id))
	}
	sort.Strings(ids)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  Per edge:")
	var spawned, failed uint64
	for _, id := range ids {
		st := s.PerEdge[id]
		spawned += st.Spawned
		failed += st.Errors
		fmt.Fprintf(out, "    %-*s  in flight %-4d spawned %-5d finished %-5d ", width, id, st.InFlight, st.Spawned, st.Finished)
		c := ok
		if st.Errors > 0 {
			c = errs
		}
		c.Fprintf(out, "errors %d", st.Errors)
		if st.Dimmed {
			fmt.Fprint(out, "  (dimmed)")
		}
		fmt.Fprintln(out)
	}

	if spawned > 0 && failed > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Repeat("=", 50))
		errs.Fprintf(out, "Error rate: %.1f%% (%d/%d points failed)\n", float64(failed)/float64(spawned)*100, failed, spawned)
		fmt.Fprintln(out, strings.Repeat("=", 50))
	}
}
