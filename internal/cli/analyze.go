package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/alanmeadows/lit-critic/internal/pipeline/lenspref"
	"github.com/alanmeadows/lit-critic/internal/platform"
	"github.com/alanmeadows/lit-critic/internal/session"
	"github.com/spf13/cobra"
)

var (
	scenePaths    []string
	analysisModel string
	discussModel  string
	lensPreset    string
	lensWeights   []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Start a new review session over one or more scenes",
	Long: `Runs the six-lens analysis pipeline over the given scene files and drops
into an interactive review loop: accept, reject, or discuss each finding in
turn. Exits 0 when every finding reaches a terminal state, 1 on a fatal
error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(scenePaths) == 0 {
			return fmt.Errorf("at least one --scene is required")
		}
		facade, err := newFacade(projectDir, appConfig)
		if err != nil {
			return err
		}
		defer facade.Close()

		scenes, err := readScenes(scenePaths, projectDir)
		if err != nil {
			return err
		}

		model := analysisModel
		if model == "" {
			model = appConfig.Models.AnalysisModel
		}
		discuss := discussModel
		if discuss == "" {
			discuss = appConfig.Models.DiscussionModel
		}

		var prefs *lenspref.Raw
		if lensPreset != "" || len(lensWeights) > 0 {
			weights, err := parseLensWeights(lensWeights)
			if err != nil {
				return err
			}
			prefs = &lenspref.Raw{Preset: lensPreset, Weights: weights}
		}

		ctx := context.Background()
		sess, err := facade.StartSession(ctx, scenes, modelConfig(appConfig, model), modelConfig(appConfig, discuss), prefs)
		if err != nil {
			return fmt.Errorf("analyzing scenes: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Session %s: %d findings\n", sess.ID, len(sess.Findings))
		return runReviewLoop(ctx, cmd, facade, sess, scenes, discuss)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue an active review session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(scenePaths) == 0 {
			return fmt.Errorf("at least one --scene is required")
		}
		facade, err := newFacade(projectDir, appConfig)
		if err != nil {
			return err
		}
		defer facade.Close()

		scenes, err := readScenes(scenePaths, projectDir)
		if err != nil {
			return err
		}

		id, err := facade.ActiveSessionID()
		if err != nil {
			return err
		}
		sess, err := facade.ResumeSession(id, scenes)
		if err != nil {
			return fmt.Errorf("resuming session %d: %w", id, err)
		}

		discuss := sess.DiscussionModel
		if discuss == "" {
			discuss = appConfig.Models.DiscussionModel
		}
		return runReviewLoop(context.Background(), cmd, facade, sess, scenes, discuss)
	},
}

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, resumeCmd} {
		c.Flags().StringArrayVar(&scenePaths, "scene", nil, "Scene file path, relative to --project (repeatable)")
	}
	analyzeCmd.Flags().StringVar(&analysisModel, "model", "", "Analysis model short name (overrides config)")
	analyzeCmd.Flags().StringVar(&discussModel, "discussion-model", "", "Discussion model short name (overrides config)")
	analyzeCmd.Flags().StringVar(&lensPreset, "lens-preset", "", "Lens preference preset")
	analyzeCmd.Flags().StringArrayVar(&lensWeights, "lens-weight", nil, "Per-lens weight override, lens=weight (repeatable)")
}

func readScenes(paths []string, dir string) ([]platform.SceneFile, error) {
	scenes := make([]platform.SceneFile, len(paths))
	for i, p := range paths {
		full := p
		if !strings.HasPrefix(p, "/") {
			full = dir + "/" + p
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("reading scene %s: %w", p, err)
		}
		scenes[i] = platform.SceneFile{Path: p, Text: string(data)}
	}
	return scenes, nil
}

func parseLensWeights(raw []string) (map[string]float64, error) {
	weights := make(map[string]float64, len(raw))
	for _, entry := range raw {
		lens, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --lens-weight %q: want lens=weight", entry)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --lens-weight %q: %w", entry, err)
		}
		weights[lens] = f
	}
	return weights, nil
}

// runReviewLoop walks every finding in order, prompting the author for
// accept/reject/discuss/skip, until every finding has a terminal status or
// the author abandons the session. Skipping past the last finding also ends
// the loop; CompleteSession then returns an error if any finding is still
// unresolved.
func runReviewLoop(ctx context.Context, cmd *cobra.Command, facade *platform.Facade, sess *domain.Session, scenes []platform.SceneFile, discussModelName string) error {
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	sceneText := combinedSceneText(scenes)

	idx := session.FirstUnresolvedIndex(sess.Findings)
	for idx >= 0 && idx < len(sess.Findings) {
		f := sess.Findings[idx]
		printFinding(out, f)
		fmt.Fprint(out, "[a]ccept [r]eject [d]iscuss [s]kip [q]uit> ")
		line, _ := in.ReadString('\n')
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "a":
			if err := facade.AcceptFinding(sess, f.Number); err != nil {
				return err
			}
		case "r":
			fmt.Fprint(out, "reason: ")
			reason, _ := in.ReadString('\n')
			if err := facade.RejectFinding(sess, f.Number, strings.TrimSpace(reason)); err != nil {
				return err
			}
		case "d":
			fmt.Fprint(out, "message: ")
			msg, _ := in.ReadString('\n')
			resp, err := facade.DiscussFinding(ctx, sess, f.Number, sceneText, strings.TrimSpace(msg), false, modelConfig(appConfig, discussModelName))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, resp.AssistantResponse)
			continue
		case "q":
			return facade.AbandonSession(sess)
		default:
			idx = session.NextAvailableIndex(sess.Findings, idx+1)
			continue
		}
		idx = session.FirstUnresolvedIndex(sess.Findings)
	}

	if err := facade.CompleteSession(sess); err != nil {
		return err
	}
	fmt.Fprintln(out, "Session complete.")
	return nil
}

func printFinding(out io.Writer, f *domain.Finding) {
	fmt.Fprintf(out, "#%d [%s/%s] %s\n  %s\n", f.Number, f.Severity, f.Lens, f.Location, f.Evidence)
}

func combinedSceneText(scenes []platform.SceneFile) string {
	var b strings.Builder
	for _, s := range scenes {
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	return b.String()
}
