package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/thesyncim/vidprobe/pkg/probe/browser"
	"github.com/thesyncim/vidprobe/pkg/probe/config"
	"github.com/thesyncim/vidprobe/pkg/probe/fixture"
	"github.com/thesyncim/vidprobe/pkg/probe/runner"
)

var (
	runHeadless   bool
	runTimeout    time.Duration
	runReportPath string
	runFixture    string
	runConfigFile string
	runNoFixture  bool
	runKeepOpen   bool
)

// customURLChoice is the picker entry that prompts for a pasted URL.
const customURLChoice = "Custom URL..."

var runCmd = &cobra.Command{
	Use:   "run [video-url]",
	Short: "Run the playback checks against a video source",
	Long: `Run the full smoke test: build the HTML fixture around the given video
source, open it in a headless Chrome, run the load/playback/seek/quality
checks, write the JSON report and print a PASS/FAIL summary.

With no argument, pick a source from the configured test videos.
With --no-fixture, the argument is opened directly as a page URL instead
of being embedded in a fixture (the page must contain a video element).

Examples:
  vidprobe run
  vidprobe run https://test-videos.co.uk/vids/bigbuckbunny/mp4/h264/360/Big_Buck_Bunny_360_10s_1MB.mp4
  vidprobe run --no-fixture http://localhost:8080`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		src := ""
		if len(args) == 1 {
			src = args[0]
		} else if !runNoFixture {
			src, err = pickVideo(cfg.Videos)
			if err != nil {
				return err
			}
		}

		pageURL := src
		if !runNoFixture {
			fixturePath := cfg.FixturePath
			if runFixture != "" {
				fixturePath = runFixture
			}
			abs, err := fixture.Write(fixturePath, src)
			if err != nil {
				return err
			}
			pageURL = fixture.FileURL(abs)
			Logger.WithField("fixture", abs).Info("fixture written")
		}
		if pageURL == "" {
			return errors.New("no page to open: provide a URL or drop --no-fixture")
		}

		browserCfg := browser.DefaultConfig()
		browserCfg.Headless = headlessFor(cfg.Headless, runHeadless, cmd.Flags().Changed("headless"))
		if runTimeout > 0 {
			browserCfg.Timeout = runTimeout
		}

		sess, err := browser.New(browserCfg)
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		// Release the browser on every outcome, including check panics.
		defer func() {
			if err := sess.Close(); err != nil {
				Logger.WithError(err).Warn("failed to close browser")
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runnerCfg := runner.DefaultConfig()
		runnerCfg.ReadyTimeout = cfg.ReadyTimeout
		runnerCfg.SettleDelay = cfg.SettleDelay

		report, err := runner.New(sess, Logger, runnerCfg).Run(ctx, pageURL)
		if err != nil {
			return err
		}

		reportPath := cfg.ReportPath
		if runReportPath != "" {
			reportPath = runReportPath
		}
		if err := report.Write(reportPath); err != nil {
			return err
		}

		report.Summary(os.Stdout)
		fmt.Printf("\nDetailed results have been saved to %s\n", reportPath)

		if runKeepOpen {
			// The deferred close runs once the user interrupts.
			fmt.Println("\nKeeping browser open - press Ctrl-C to close")
			<-ctx.Done()
		}

		if !report.Passed() {
			return errors.New("one or more checks failed")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runHeadless, "headless", true, "Run Chrome headless")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Browser operation timeout (default 30s)")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Report file path (default from config)")
	runCmd.Flags().StringVar(&runFixture, "fixture", "", "Fixture file path (default from config)")
	runCmd.Flags().StringVar(&runConfigFile, "config", "", "Optional vidprobe.yaml config file")
	runCmd.Flags().BoolVar(&runNoFixture, "no-fixture", false, "Open the argument directly as a page URL")
	runCmd.Flags().BoolVar(&runKeepOpen, "keep-open", false, "Keep the browser open after the checks until interrupted")
	rootCmd.AddCommand(runCmd)
}

// headlessFor resolves headless mode: an explicitly set --headless flag
// wins over the environment and config file.
func headlessFor(cfgHeadless, flagValue, flagChanged bool) bool {
	if flagChanged {
		return flagValue
	}
	return cfgHeadless
}

func loadConfig() (*config.Config, error) {
	if runConfigFile != "" {
		return config.LoadFile(runConfigFile)
	}
	return config.Load()
}

// pickVideo asks the user to choose one of the configured test videos,
// or paste their own URL.
func pickVideo(videos []config.Video) (string, error) {
	choices := make([]string, 0, len(videos)+1)
	byName := make(map[string]string, len(videos))
	for _, v := range videos {
		choices = append(choices, v.Name)
		byName[v.Name] = v.URL
	}
	choices = append(choices, customURLChoice)

	var selected string
	prompt := &survey.Select{
		Message: "Which video do you want to test?",
		Options: choices,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	if selected != customURLChoice {
		return byName[selected], nil
	}

	var url string
	if err := survey.AskOne(&survey.Input{Message: "Video URL:"}, &url); err != nil {
		return "", err
	}
	return url, nil
}
